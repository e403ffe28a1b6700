package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/streetcats/report-service/internal/api/dto"
	"github.com/streetcats/report-service/internal/client"
	"github.com/streetcats/report-service/internal/domain"
	"github.com/streetcats/report-service/internal/media"
)

type rootOptions struct {
	server  string
	token   string
	timeout time.Duration
	verbose bool
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "catctl",
		Short:         "Report, claim and resolve street-cat sightings",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.server, "server", envOr("CATCTL_SERVER", "http://localhost:5000"), "API base URL (CATCTL_SERVER)")
	root.PersistentFlags().StringVar(&opts.token, "token", os.Getenv("CATCTL_TOKEN"), "bearer token (CATCTL_TOKEN)")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 30*time.Second, "request timeout")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log HTTP requests")

	root.AddCommand(
		newRegisterCmd(opts),
		newLoginCmd(opts),
		newReportsCmd(opts),
		newStatsCmd(opts),
		newUploadCmd(opts),
		newMapCmd(opts),
	)
	return root
}

func (o *rootOptions) store() *client.Store {
	logger := zap.NewNop()
	if o.verbose {
		if l, err := zap.NewDevelopment(); err == nil {
			logger = l
		}
	}
	api := client.NewHTTPClient(o.server,
		client.WithHTTPClient(&http.Client{Timeout: o.timeout}),
		client.WithLogger(logger))
	storeOpts := []client.StoreOption{client.WithStoreLogger(logger)}
	if o.token != "" {
		storeOpts = append(storeOpts, client.WithSession(client.Session{Token: o.token}))
	}
	return client.NewStore(api, storeOpts...)
}

func (o *rootOptions) requireToken() error {
	if o.token == "" {
		return errors.New("this command needs a token: pass --token or set CATCTL_TOKEN")
	}
	return nil
}

func newRegisterCmd(opts *rootOptions) *cobra.Command {
	var in client.RegisterInput
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and print its token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store := opts.store()
			if err := store.Register(cmd.Context(), in); err != nil {
				return err
			}
			session, _ := store.Session()
			return printSession(cmd.OutOrStdout(), session)
		},
	}
	cmd.Flags().StringVar(&in.FirstName, "first-name", "", "first name")
	cmd.Flags().StringVar(&in.LastName, "last-name", "", "last name")
	cmd.Flags().StringVar(&in.Email, "email", "", "email")
	cmd.Flags().StringVar(&in.Password, "password", "", "password")
	cmd.Flags().StringVar(&in.Company, "company", "", "company (optional)")
	for _, name := range []string{"first-name", "last-name", "email", "password"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

func newLoginCmd(opts *rootOptions) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and print the token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store := opts.store()
			if err := store.Login(cmd.Context(), email, password); err != nil {
				return err
			}
			session, _ := store.Session()
			return printSession(cmd.OutOrStdout(), session)
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email")
	cmd.Flags().StringVar(&password, "password", "", "password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newReportsCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reports",
		Short: "List and update reports",
	}
	cmd.AddCommand(
		newReportsListCmd(opts),
		newReportsMineCmd(opts),
		newReportsCreateCmd(opts),
		newTransitionCmd(opts, "claim", "Claim a new report", (*client.Store).ClaimReport),
		newTransitionCmd(opts, "resolve", "Resolve a report you claimed", (*client.Store).ResolveReport),
	)
	return cmd
}

func newReportsListCmd(opts *rootOptions) *cobra.Command {
	var types, statuses []string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List reports, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			filter, err := parseFilter(types, statuses)
			if err != nil {
				return err
			}
			store := opts.store()
			if err := store.FetchReports(cmd.Context()); err != nil {
				return err
			}
			return printReports(cmd.OutOrStdout(), store.View(filter).Reports)
		},
	}
	addFilterFlags(cmd, &types, &statuses)
	return cmd
}

func newReportsMineCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "mine",
		Short: "List reports assigned to you",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := opts.requireToken(); err != nil {
				return err
			}
			store := opts.store()
			if err := store.FetchMyReports(cmd.Context()); err != nil {
				return err
			}
			return printReports(cmd.OutOrStdout(), store.Reports())
		},
	}
}

func newReportsCreateCmd(opts *rootOptions) *cobra.Command {
	var (
		req      dto.CreateReportRequest
		typ      string
		lat, lng float64
		address  string
		files    []string
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Report a sighting, as a guest unless a token is set",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store := opts.store()
			req.Type = domain.ReportType(typ)
			req.Location = &dto.LocationInput{Lat: &lat, Lng: &lng, Address: address}
			if len(files) > 0 {
				uploads, err := openUploads(files)
				if err != nil {
					return err
				}
				urls, err := store.UploadMedia(cmd.Context(), uploads)
				if err != nil {
					return err
				}
				req.Media = append(req.Media, urls...)
			}
			report, err := store.CreateReport(cmd.Context(), req)
			if err != nil {
				return err
			}
			return printReport(cmd.OutOrStdout(), report)
		},
	}
	cmd.Flags().StringVar(&req.Description, "description", "", "what you saw")
	cmd.Flags().StringVar(&typ, "type", string(domain.ReportTypeGeneral), "emergency, food or general")
	cmd.Flags().Float64Var(&lat, "lat", 0, "latitude")
	cmd.Flags().Float64Var(&lng, "lng", 0, "longitude")
	cmd.Flags().StringVar(&address, "address", "", "street address (optional)")
	cmd.Flags().StringSliceVar(&req.Media, "media", nil, "media URLs to attach")
	cmd.Flags().StringSliceVar(&files, "file", nil, "image or video files to upload and attach")
	for _, name := range []string{"description", "lat", "lng"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

type transition func(*client.Store, context.Context, string) (dto.Report, error)

func newTransitionCmd(opts *rootOptions, use, short string, apply transition) *cobra.Command {
	return &cobra.Command{
		Use:   use + " ID",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.requireToken(); err != nil {
				return err
			}
			report, err := apply(opts.store(), cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printReport(cmd.OutOrStdout(), report)
		},
	}
}

func newStatsCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show global report counts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			stats, err := opts.store().FetchGlobalStats(cmd.Context())
			if err != nil {
				return err
			}
			return printCounts(cmd.OutOrStdout(), [][2]any{
				{"total", stats.Total},
				{"new", stats.New},
				{"in-progress", stats.InProgress},
				{"resolved", stats.Resolved},
			})
		},
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "me",
		Short: "Show counts for reports assigned to you",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := opts.requireToken(); err != nil {
				return err
			}
			stats, err := opts.store().FetchUserStats(cmd.Context())
			if err != nil {
				return err
			}
			return printCounts(cmd.OutOrStdout(), [][2]any{
				{"total", stats.Total},
				{"in-progress", stats.InProgress},
				{"resolved", stats.Resolved},
			})
		},
	})
	return cmd
}

func newUploadCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "upload FILE...",
		Short: "Upload images or videos and print their URLs",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			uploads, err := openUploads(args)
			if err != nil {
				return err
			}
			urls, err := opts.store().UploadMedia(cmd.Context(), uploads)
			if err != nil {
				return err
			}
			for _, url := range urls {
				fmt.Fprintln(cmd.OutOrStdout(), url)
			}
			return nil
		},
	}
}

func newMapCmd(opts *rootOptions) *cobra.Command {
	var types, statuses []string
	cmd := &cobra.Command{
		Use:   "map",
		Short: "Show the map center, legend and filtered reports",
		RunE: func(cmd *cobra.Command, _ []string) error {
			filter, err := parseFilter(types, statuses)
			if err != nil {
				return err
			}
			store := opts.store()
			if err := store.FetchReports(cmd.Context()); err != nil {
				return err
			}
			return printView(cmd.OutOrStdout(), store.View(filter))
		},
	}
	addFilterFlags(cmd, &types, &statuses)
	return cmd
}

func addFilterFlags(cmd *cobra.Command, types, statuses *[]string) {
	cmd.Flags().StringSliceVar(types, "type", nil, "only these types (emergency, food, general)")
	cmd.Flags().StringSliceVar(statuses, "status", nil, "only these statuses (new, in-progress, resolved)")
}

func parseFilter(types, statuses []string) (client.Filter, error) {
	var f client.Filter
	for _, t := range types {
		rt := domain.ReportType(t)
		if !rt.Valid() {
			return f, fmt.Errorf("unknown report type %q", t)
		}
		f.Types = append(f.Types, rt)
	}
	for _, s := range statuses {
		rs := domain.ReportStatus(s)
		if !rs.Valid() {
			return f, fmt.Errorf("unknown report status %q", s)
		}
		f.Statuses = append(f.Statuses, rs)
	}
	return f, nil
}

// openUploads stats every path and detects its content type. Each file is
// opened when the upload body is written.
func openUploads(paths []string) ([]media.Upload, error) {
	uploads := make([]media.Upload, 0, len(paths))
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, err
		}
		contentType, err := detectContentType(path)
		if err != nil {
			return nil, err
		}
		uploads = append(uploads, media.Upload{
			Filename:    filepath.Base(path),
			ContentType: contentType,
			Size:        info.Size(),
			Open:        func() (io.ReadCloser, error) { return os.Open(path) },
		})
	}
	return uploads, nil
}

func detectContentType(path string) (string, error) {
	if ct := mime.TypeByExtension(filepath.Ext(path)); ct != "" {
		return ct, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	head := make([]byte, 512)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", err
	}
	return http.DetectContentType(head[:n]), nil
}
