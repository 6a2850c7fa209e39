package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/thywilljoshua/urdu-link/internal/convert"
	"github.com/thywilljoshua/urdu-link/internal/dispatch"
	"github.com/thywilljoshua/urdu-link/internal/domain"
	"github.com/thywilljoshua/urdu-link/internal/export"
	"github.com/thywilljoshua/urdu-link/internal/ingest"
	"github.com/thywilljoshua/urdu-link/internal/progress"
	"github.com/thywilljoshua/urdu-link/internal/session"
)

func translateCmd(a *app) *cobra.Command {
	var quality string
	var concurrency int
	var out string
	var prefix string
	var noCache bool
	var singleFile bool
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "translate <file>...",
		Short: "Translate PDFs, images and DOCX files into Urdu and write the manuscripts",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q := a.cfg.Quality()
			if quality != "" {
				parsed, err := domain.ParseQuality(quality)
				if err != nil {
					return err
				}
				q = parsed
			}
			if !cmd.Flags().Changed("concurrency") {
				concurrency = a.cfg.Translate.Concurrency
			}
			if concurrency < 1 || concurrency > dispatch.MaxConcurrency {
				return fmt.Errorf("--concurrency must be between 1 and %d", dispatch.MaxConcurrency)
			}
			if out == "" {
				out = a.cfg.Export.OutDir
			}

			uploads := make([]ingest.Upload, 0, len(args))
			for _, path := range args {
				up, err := ingest.FromFile(path)
				if err != nil {
					return err
				}
				uploads = append(uploads, up)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			svc, err := a.requireService(ctx)
			if err != nil {
				return err
			}

			limits := a.cfg.SizeLimits()
			if singleFile {
				limits = ingest.SingleFileLimits()
			}
			rc := convert.Config{
				OutDir:      out,
				FilePrefix:  prefix,
				PDF:         export.PDFOptions{FontPath: a.cfg.Export.PDFFont},
				Quality:     q,
				Concurrency: concurrency,
				Limits:      limits,
				Raster:      a.cfg.Raster,
				Translator:  svc,
				Session:     session.New(),
				Logger:      a.log,
			}
			if a.cfg.Store.Enabled {
				st, err := a.openStore()
				if err != nil {
					return err
				}
				defer st.Close()
				rc.Runs = st
				if !noCache {
					rc.Cache = st
				}
			}

			bar := progressbar.NewOptions(100,
				progressbar.OptionSetWriter(os.Stderr),
				progressbar.OptionSetWidth(40),
				progressbar.OptionSetDescription(progress.StatusScanning),
				progressbar.OptionSetTheme(progressbar.Theme{
					Saucer:        "=",
					SaucerHead:    ">",
					SaucerPadding: " ",
					BarStart:      "[",
					BarEnd:        "]",
				}),
				progressbar.OptionSetRenderBlankState(true),
				progressbar.OptionClearOnFinish(),
			)
			rc.Session.OnProgress(func(s progress.Snapshot) {
				bar.Describe(s.Status)
				_ = bar.Set(s.Percent)
			})

			res, err := convert.Run(ctx, uploads, rc)
			_ = bar.Finish()
			if res == nil {
				return err
			}
			printResult(cmd, res, jsonOut)
			if dispatch.Canceled(err) {
				return fmt.Errorf("translation canceled after %d records", len(res.Records))
			}
			return err
		},
	}
	cmd.Flags().StringVarP(&quality, "quality", "q", "", "model tier: fast|precise (default from config)")
	cmd.Flags().IntVarP(&concurrency, "concurrency", "j", 1, fmt.Sprintf("units translated at once (1-%d)", dispatch.MaxConcurrency))
	cmd.Flags().StringVarP(&out, "out", "o", "", "output directory for the manuscripts (default from config)")
	cmd.Flags().StringVar(&prefix, "prefix", "", "prefix for the output file names")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "do not reuse earlier translations of identical pages")
	cmd.Flags().BoolVar(&singleFile, "single-file", false, "apply the 200MB single-document limit")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "print the result as JSON")
	return cmd
}

func printResult(cmd *cobra.Command, res *convert.Result, jsonOut bool) {
	w := cmd.OutOrStdout()
	if jsonOut {
		b, _ := json.MarshalIndent(res, "", "  ")
		fmt.Fprintln(w, string(b))
		return
	}
	for _, warn := range res.Warnings {
		fmt.Fprintln(w, warnf("⚠ %s", warn.String()))
	}
	summary := fmt.Sprintf("%d of %d units translated", len(res.Records), res.Progress.Total)
	if res.Cached > 0 {
		summary += fmt.Sprintf(" (%d from memory)", res.Cached)
	}
	if res.Progress.Percent == 100 {
		fmt.Fprintln(w, successf("✓ %s: %s", res.Progress.Status, summary))
	} else {
		fmt.Fprintln(w, warnf("%s", summary))
	}
	for _, f := range res.Files {
		fmt.Fprintln(w, infof("→ %s", f))
	}
}
