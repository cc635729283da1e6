package wire

import (
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/kart-variants/internal/domain/product"
	"github.com/xenking/kart-variants/internal/domain/variant"
)

// ErrMissingField is wrapped by decode errors for absent required fields.
var ErrMissingField = errors.New("missing required field")

// ToggleRequest is the body of a toggle call. Value accepts either a bare
// string or a descriptor object.
type ToggleRequest struct {
	Attribute string
	Value     variant.ValueDescriptor
}

// DecodeOpenRequest parses {"slug", "locale", "currency"}. Unknown fields
// are skipped.
func DecodeOpenRequest(data []byte) (product.Query, error) {
	var q product.Query
	err := jx.DecodeBytes(data).ObjBytes(func(d *jx.Decoder, key []byte) error {
		var err error
		switch string(key) {
		case "slug":
			q.Slug, err = d.Str()
		case "locale":
			q.Locale, err = d.Str()
		case "currency":
			q.Currency, err = d.Str()
		default:
			err = d.Skip()
		}
		if err != nil {
			return errors.Wrapf(err, "field %q", key)
		}
		return nil
	})
	if err != nil {
		return product.Query{}, errors.Wrap(err, "decode open request")
	}
	if q.Slug == "" {
		return product.Query{}, errors.Wrap(ErrMissingField, "slug")
	}
	return q, nil
}

// DecodeToggleRequest parses {"attribute": "...", "value": ...}.
func DecodeToggleRequest(data []byte) (ToggleRequest, error) {
	var (
		req      ToggleRequest
		hasValue bool
	)
	err := jx.DecodeBytes(data).ObjBytes(func(d *jx.Decoder, key []byte) error {
		var err error
		switch string(key) {
		case "attribute":
			req.Attribute, err = d.Str()
		case "value":
			hasValue = true
			req.Value, err = DecodeDescriptor(d)
		default:
			err = d.Skip()
		}
		if err != nil {
			return errors.Wrapf(err, "field %q", key)
		}
		return nil
	})
	if err != nil {
		return ToggleRequest{}, errors.Wrap(err, "decode toggle request")
	}
	if req.Attribute == "" {
		return ToggleRequest{}, errors.Wrap(ErrMissingField, "attribute")
	}
	if !hasValue || req.Value.Value == "" {
		return ToggleRequest{}, errors.Wrap(ErrMissingField, "value")
	}
	return req, nil
}

// DecodeDescriptor reads a value descriptor from a string or from an object
// with "value", "hexColor" and "imageRef".
func DecodeDescriptor(d *jx.Decoder) (variant.ValueDescriptor, error) {
	var vd variant.ValueDescriptor
	switch d.Next() {
	case jx.String:
		v, err := d.Str()
		vd.Value = v
		return vd, err
	case jx.Object:
		err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
			var err error
			switch string(key) {
			case "value":
				vd.Value, err = d.Str()
			case "hexColor":
				vd.HexColor, err = d.Str()
			case "imageRef":
				vd.ImageRef, err = d.Str()
			default:
				err = d.Skip()
			}
			return err
		})
		return vd, err
	default:
		return vd, errors.Errorf("unexpected %s for value", d.Next())
	}
}
