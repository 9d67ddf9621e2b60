package commands

import (
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/skaild/sitegen/internal/render"
	"github.com/skaild/sitegen/internal/site"
	"github.com/skaild/sitegen/internal/store/postgres"
)

func inspectCmd(opts *options) *cobra.Command {
	var raw bool
	cmd := &cobra.Command{
		Use:   "inspect <domain>",
		Short: "Print the stored or normalized config of a site",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			db, err := opts.openDB(ctx)
			if err != nil {
				return err
			}
			defer db.Close()

			repo := postgres.NewSiteRepository(db)
			st, err := repo.GetByDomain(ctx, normalizeDomain(args[0]))
			if err != nil {
				return err
			}
			if raw {
				images, err := repo.ListImages(ctx, st.ID)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), struct {
					*site.Site
					Images []site.GeneratedImage `json:"generated_images"`
				}{st, images})
			}
			return printJSON(cmd.OutOrStdout(), site.Normalize(st))
		},
	}
	cmd.Flags().BoolVar(&raw, "raw", false, "print the stored record and its generated images")
	return cmd
}

func resetContentCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "reset-content <domain>",
		Short: "Clear generated content so the next visit regenerates it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := opts.openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			domain := normalizeDomain(args[0])
			if err := a.Sites.ResetContent(ctx, domain, actorName()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "content reset for %s\n", domain)
			return nil
		},
	}
}

func generateCmd(opts *options) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "generate <domain>",
		Short: "Generate content and images for a site now",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := opts.openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			domain := normalizeDomain(args[0])
			res, err := a.Sites.Generate(ctx, domain, force)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch {
			case res.Skipped:
				fmt.Fprintf(out, "%s: content already complete (use --force to regenerate)\n", domain)
			case res.Fallback:
				fmt.Fprintf(out, "%s: text generation failed, fallback content cached but not saved\n", domain)
			default:
				fmt.Fprintf(out, "%s: generated %d images, %d failed, saved=%t\n",
					domain, len(res.Images), res.ImageFailures, res.Persisted)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "regenerate even when content is complete")
	return cmd
}

func renderCmd(opts *options) *cobra.Command {
	var (
		pretty bool
		out    string
	)
	cmd := &cobra.Command{
		Use:   "render <domain>",
		Short: "Render the landing page of a site to stdout or a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			domain := normalizeDomain(args[0])

			db, err := opts.openDB(ctx)
			if err != nil {
				return err
			}
			defer db.Close()

			var cfg *site.Config
			st, err := postgres.NewSiteRepository(db).GetByDomain(ctx, domain)
			switch {
			case errors.Is(err, site.ErrSiteNotFound) && !opts.cfg.IsProduction():
				cfg = site.DefaultConfig(domain)
			case err != nil:
				return err
			default:
				cfg = site.Normalize(st)
			}

			renderer, err := render.New(render.Options{Pretty: pretty || opts.cfg.Render.Pretty})
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if out != "" {
				f, err := os.Create(out)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			return renderer.Render(w, cfg)
		},
	}
	cmd.Flags().BoolVar(&pretty, "pretty", false, "indent the HTML output")
	cmd.Flags().StringVarP(&out, "out", "o", "", "write to file instead of stdout")
	return cmd
}

func createSiteCmd(opts *options) *cobra.Command {
	var p site.CreateParams
	var weekdays, weekends string
	cmd := &cobra.Command{
		Use:   "create-site",
		Short: "Onboard a new site",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := opts.openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			if weekdays != "" || weekends != "" {
				p.Profile.Hours = &site.Hours{Weekdays: weekdays, Weekends: weekends}
			}
			st, err := a.Sites.Create(ctx, p, actorName())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s (id %s)\n", st.Domain, st.ID)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&p.Domain, "domain", "", "site domain, e.g. plumber.skaild.com")
	f.StringVar(&p.Profile.Name, "name", "", "business name")
	f.StringVar(&p.Profile.BusinessType, "type", site.DefaultBusinessType, "business type, e.g. plumber, electrician, beauty_salon")
	f.StringVar(&p.Profile.Phone, "phone", "", "phone number")
	f.StringVar(&p.Profile.Email, "email", "", "contact email")
	f.StringVar(&p.Profile.Address.Street, "street", "", "street address")
	f.StringVar(&p.Profile.Address.City, "city", "", "city")
	f.StringVar(&p.Profile.Address.State, "state", "", "state")
	f.StringVar(&p.Profile.Address.Zip, "zip", "", "postal code")
	f.StringVar(&weekdays, "weekdays", "", "weekday opening hours")
	f.StringVar(&weekends, "weekends", "", "weekend opening hours")
	f.StringVar(&p.Theme.Colors.Primary, "primary", "", "primary color")
	f.StringVar(&p.Theme.Colors.Secondary, "secondary", "", "secondary color")
	f.StringVar(&p.Theme.Colors.Accent, "accent", "", "accent color")
	f.StringVar(&p.Theme.Style.ButtonRadius, "button-radius", "", "pill, rounded or square")
	f.StringVar(&p.Theme.Style.Layout, "layout", "", "boxed or full")
	_ = cmd.MarkFlagRequired("domain")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func listCmd(opts *options) *cobra.Command {
	var limit, offset int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List onboarded sites",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			db, err := opts.openDB(ctx)
			if err != nil {
				return err
			}
			defer db.Close()

			svc := site.NewService(postgres.NewSiteRepository(db), nil, nil, nil, nil, site.Options{})
			sites, err := svc.List(ctx, limit, offset)
			if err != nil {
				return err
			}
			return writeSiteTable(cmd.OutOrStdout(), sites)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum sites to list (1-100)")
	cmd.Flags().IntVar(&offset, "offset", 0, "sites to skip")
	return cmd
}

func writeSiteTable(w io.Writer, sites []*site.Site) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DOMAIN\tBUSINESS\tTYPE\tGENERATED\tUPDATED")
	for _, st := range sites {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%t\t%s\n",
			st.Domain, st.Profile.Name, st.Profile.BusinessType, st.ContentGenerated,
			st.UpdatedAt.Format(time.RFC3339))
	}
	return tw.Flush()
}
