package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/xenking/kart-variants/internal/domain/product"
	"github.com/xenking/kart-variants/internal/domain/variant"
	"github.com/xenking/kart-variants/internal/fixture"
	"github.com/xenking/kart-variants/internal/wire"
)

// ErrIntegrity is returned by check when a catalog has integrity issues.
var ErrIntegrity = errors.New("catalog integrity issues found")

type rootOptions struct {
	fixture  string
	locale   string
	currency string
	verbose  bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "variantctl",
		Short:         "Explore variant availability for catalog fixtures",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&opts.fixture, "fixture", "f", "db/seed/products.json", "catalog fixture file (YAML or JSON)")
	flags.StringVar(&opts.locale, "locale", product.DefaultLocale, "locale for product names")
	flags.StringVar(&opts.currency, "currency", product.DefaultCurrency, "currency for variant prices")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "log selector decisions to stderr")

	root.AddCommand(
		newProductsCmd(opts),
		newGroupsCmd(opts),
		newResolveCmd(opts),
		newCheckCmd(opts),
	)
	return root
}

func (o *rootOptions) query(slug string) product.Query {
	return product.Query{Slug: slug, Locale: o.locale, Currency: o.currency}
}

func (o *rootOptions) logger(w io.Writer) *zap.Logger {
	if !o.verbose {
		return zap.NewNop()
	}
	enc := zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	return zap.New(zapcore.NewCore(enc, zapcore.AddSync(w), zap.DebugLevel))
}

func (o *rootOptions) load(slug string) (*product.Product, error) {
	f, err := fixture.Load(o.fixture)
	if err != nil {
		return nil, err
	}
	p, ok := f.Find(slug)
	if !ok {
		return nil, errors.Wrapf(product.ErrNotFound, "slug %q", slug)
	}
	return p.Product(o.query(slug)), nil
}

func newProductsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "products",
		Short: "List products in the fixture",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := fixture.Load(opts.fixture)
			if err != nil {
				return err
			}
			list, err := fixture.NewRepository(f).List(cmd.Context(), opts.locale)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), func(e *jx.Encoder) {
				wire.EncodeSummaries(e, list)
			})
		},
	}
}

func newGroupsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "groups <slug>",
		Short: "Print a product with its attribute groups and variants",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := opts.load(args[0])
			if err != nil {
				return err
			}
			groups := variant.NewCatalog(p.Variants).Groups()
			return writeJSON(cmd.OutOrStdout(), func(e *jx.Encoder) {
				wire.EncodeProduct(e, p, groups)
			})
		},
	}
}

func newResolveCmd(opts *rootOptions) *cobra.Command {
	var (
		selections []string
		strict     bool
	)
	cmd := &cobra.Command{
		Use:   "resolve <slug>",
		Short: "Apply selections in order and print the resulting availability payload",
		Long: `Applies each --select attribute=value in order, as a shopper clicking
through the attribute groups would. Rejected selections are reported on
stderr and leave the selection unchanged.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := opts.load(args[0])
			if err != nil {
				return err
			}

			var image string
			s := variant.NewSelector(p.Variants,
				variant.WithLogger(opts.logger(cmd.ErrOrStderr())),
				variant.WithImageNotifier(variant.ImageNotifierFunc(func(ref string) { image = ref })),
			)

			payload := s.Snapshot()
			for _, raw := range selections {
				attr, value, err := parseSelection(raw)
				if err != nil {
					return err
				}
				d, ok := s.Groups().Lookup(attr, value)
				if !ok {
					d = variant.ValueDescriptor{Attribute: attr, Value: value}
				}
				res := s.Toggle(attr, d)
				payload = res.Payload
				if !res.Accepted {
					if strict {
						return errors.Wrapf(res.Rejection, "select %s", raw)
					}
					fmt.Fprintf(cmd.ErrOrStderr(), "rejected %s: %v\n", raw, res.Rejection)
				}
			}
			if image != "" {
				fmt.Fprintf(cmd.ErrOrStderr(), "image: %s\n", image)
			}

			return writeJSON(cmd.OutOrStdout(), func(e *jx.Encoder) {
				wire.EncodePayload(e, payload)
			})
		},
	}
	cmd.Flags().StringArrayVarP(&selections, "select", "s", nil, "attribute=value to select, repeatable")
	cmd.Flags().BoolVar(&strict, "strict", false, "fail on the first rejected selection")
	return cmd
}

func newCheckCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Report catalog integrity issues for every product",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := fixture.Load(opts.fixture)
			if err != nil {
				return err
			}
			var total int
			for i := range f.Products {
				fp := &f.Products[i]
				issues := variant.NewCatalog(fp.Product(opts.query(fp.Slug)).Variants).Issues()
				for _, issue := range issues {
					fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", fp.Slug, issue)
				}
				total += len(issues)
			}
			if total > 0 {
				return errors.Wrapf(ErrIntegrity, "%d issue(s)", total)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d product(s) ok\n", len(f.Products))
			return nil
		},
	}
}

func parseSelection(raw string) (attribute, value string, err error) {
	attribute, value, ok := strings.Cut(raw, "=")
	attribute = strings.TrimSpace(attribute)
	value = strings.TrimSpace(value)
	if !ok || attribute == "" || value == "" {
		return "", "", errors.Errorf("invalid selection %q: want attribute=value", raw)
	}
	return attribute, value, nil
}

func writeJSON(w io.Writer, fn func(e *jx.Encoder)) error {
	e := &jx.Encoder{}
	e.SetIdent(2)
	fn(e)
	if _, err := w.Write(append(e.Bytes(), '\n')); err != nil {
		return errors.Wrap(err, "write output")
	}
	return nil
}
