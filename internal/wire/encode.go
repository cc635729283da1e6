// Package wire is the JSON representation of catalog, selection, and session
// state shared by the HTTP API and the command-line tools.
package wire

import (
	"time"

	"github.com/go-faster/jx"

	"github.com/xenking/kart-variants/internal/domain/product"
	"github.com/xenking/kart-variants/internal/domain/variant"
	"github.com/xenking/kart-variants/internal/session"
)

// EncodeError writes the error body {"code": code, "message": msg}.
func EncodeError(e *jx.Encoder, code int, msg string) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("code", func(e *jx.Encoder) { e.Int(code) })
		e.Field("message", func(e *jx.Encoder) { e.Str(msg) })
	})
}

// EncodeSummaries writes the product list.
func EncodeSummaries(e *jx.Encoder, list []product.Summary) {
	e.Arr(func(e *jx.Encoder) {
		for _, s := range list {
			EncodeSummary(e, s)
		}
	})
}

// EncodeSummary writes one product list entry.
func EncodeSummary(e *jx.Encoder, s product.Summary) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Str(s.ID) })
		e.Field("slug", func(e *jx.Encoder) { e.Str(s.Slug) })
		e.Field("name", func(e *jx.Encoder) { e.Str(s.Name) })
		e.Field("variantCount", func(e *jx.Encoder) { e.Int(s.VariantCount) })
	})
}

// EncodeProduct writes a product with its raw variants and attribute groups.
func EncodeProduct(e *jx.Encoder, p *product.Product, groups variant.AttributeGroups) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Str(p.ID) })
		e.Field("slug", func(e *jx.Encoder) { e.Str(p.Slug) })
		e.Field("name", func(e *jx.Encoder) { e.Str(p.Name) })
		e.Field("currency", func(e *jx.Encoder) { e.Str(p.Currency) })
		e.Field("groups", func(e *jx.Encoder) { EncodeGroups(e, groups) })
		e.Field("variants", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, v := range p.Variants {
					EncodeVariant(e, v)
				}
			})
		})
	})
}

// EncodeGroups writes attribute groups in catalog order.
func EncodeGroups(e *jx.Encoder, groups variant.AttributeGroups) {
	e.Arr(func(e *jx.Encoder) {
		for _, g := range groups {
			e.Obj(func(e *jx.Encoder) {
				e.Field("attribute", func(e *jx.Encoder) { e.Str(g.Attribute) })
				e.Field("values", func(e *jx.Encoder) {
					e.Arr(func(e *jx.Encoder) {
						for _, d := range g.Values {
							EncodeDescriptor(e, d)
						}
					})
				})
			})
		}
	})
}

// EncodeDescriptor writes a value descriptor, omitting empty metadata.
func EncodeDescriptor(e *jx.Encoder, d variant.ValueDescriptor) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("value", func(e *jx.Encoder) { e.Str(d.Value) })
		if d.HexColor != "" {
			e.Field("hexColor", func(e *jx.Encoder) { e.Str(d.HexColor) })
		}
		if d.ImageRef != "" {
			e.Field("imageRef", func(e *jx.Encoder) { e.Str(d.ImageRef) })
		}
	})
}

// EncodeVariant writes a variant. Prices are fixed to two decimals.
func EncodeVariant(e *jx.Encoder, v variant.Variant) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Str(v.ID) })
		e.Field("sku", func(e *jx.Encoder) { e.Str(v.SKU) })
		e.Field("stock", func(e *jx.Encoder) { e.Int(v.Stock) })
		e.Field("price", func(e *jx.Encoder) { e.Str(v.Price.StringFixed(2)) })
		e.Field("options", func(e *jx.Encoder) {
			e.Obj(func(e *jx.Encoder) {
				for _, a := range v.Assignments {
					e.Field(a.Attribute, func(e *jx.Encoder) { e.Str(a.Value) })
				}
			})
		})
	})
}

// EncodePayload writes the derived state of a selection.
func EncodePayload(e *jx.Encoder, p variant.Payload) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("state", func(e *jx.Encoder) { e.Str(p.State.String()) })
		e.Field("selection", func(e *jx.Encoder) {
			e.Obj(func(e *jx.Encoder) {
				for _, attr := range p.Selection.Attributes() {
					e.Field(attr, func(e *jx.Encoder) { e.Str(p.Selection[attr]) })
				}
			})
		})
		e.Field("attributes", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, a := range p.Attributes {
					encodeAttributeState(e, a)
				}
			})
		})
		e.Field("match", func(e *jx.Encoder) { encodeMatch(e, p.Match) })
		e.Field("missing", func(e *jx.Encoder) { encodeStrings(e, p.Missing) })
		if p.Prompt != "" {
			e.Field("prompt", func(e *jx.Encoder) { e.Str(p.Prompt) })
		}
		if p.Notice != "" {
			e.Field("notice", func(e *jx.Encoder) { e.Str(p.Notice) })
		}
	})
}

func encodeAttributeState(e *jx.Encoder, a variant.AttributeState) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("attribute", func(e *jx.Encoder) { e.Str(a.Attribute) })
		if a.Selected != "" {
			e.Field("selected", func(e *jx.Encoder) { e.Str(a.Selected) })
		}
		e.Field("values", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, v := range a.Values {
					e.Obj(func(e *jx.Encoder) {
						e.Field("value", func(e *jx.Encoder) { e.Str(v.Descriptor.Value) })
						if v.Descriptor.HexColor != "" {
							e.Field("hexColor", func(e *jx.Encoder) { e.Str(v.Descriptor.HexColor) })
						}
						if v.Descriptor.ImageRef != "" {
							e.Field("imageRef", func(e *jx.Encoder) { e.Str(v.Descriptor.ImageRef) })
						}
						e.Field("selected", func(e *jx.Encoder) { e.Bool(v.Selected) })
						e.Field("available", func(e *jx.Encoder) { e.Bool(v.Available) })
						e.Field("availableStock", func(e *jx.Encoder) { e.Int(v.AvailableStock) })
						e.Field("reasons", func(e *jx.Encoder) { encodeStrings(e, v.Reasons) })
					})
				}
			})
		})
	})
}

func encodeMatch(e *jx.Encoder, m variant.MatchResult) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("status", func(e *jx.Encoder) { e.Str(m.Status.String()) })
		e.Field("variant", func(e *jx.Encoder) {
			if m.Variant == nil {
				e.Null()
				return
			}
			EncodeVariant(e, *m.Variant)
		})
		if len(m.Candidates) > 0 {
			e.Field("candidates", func(e *jx.Encoder) { encodeStrings(e, m.Candidates) })
		}
	})
}

// EncodeSession writes a session view. A rejected toggle is reported in the
// "rejection" field; the payload is the unchanged selection state.
func EncodeSession(e *jx.Encoder, v *session.View) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Str(v.ID) })
		e.Field("product", func(e *jx.Encoder) { EncodeSummary(e, v.Product) })
		e.Field("currency", func(e *jx.Encoder) { e.Str(v.Currency) })
		e.Field("groups", func(e *jx.Encoder) { EncodeGroups(e, v.Groups) })
		e.Field("payload", func(e *jx.Encoder) { EncodePayload(e, v.Payload) })
		if v.ImageRef != "" {
			e.Field("imageRef", func(e *jx.Encoder) { e.Str(v.ImageRef) })
		}
		e.Field("accepted", func(e *jx.Encoder) { e.Bool(v.Accepted) })
		if v.Rejection != nil {
			e.Field("rejection", func(e *jx.Encoder) { e.Str(v.Rejection.Error()) })
		}
		e.Field("expiresAt", func(e *jx.Encoder) { e.Str(v.ExpiresAt.UTC().Format(time.RFC3339)) })
	})
}

func encodeStrings(e *jx.Encoder, list []string) {
	e.Arr(func(e *jx.Encoder) {
		for _, s := range list {
			e.Str(s)
		}
	})
}
