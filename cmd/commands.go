package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/pocketbase/pocketbase"
	"github.com/spf13/cobra"

	"specimenpro/config"
	"specimenpro/internal/assets"
	"specimenpro/internal/codec"
	"specimenpro/internal/status"
	"specimenpro/internal/validation"
	"specimenpro/monitoring"
	"specimenpro/services"
	"specimenpro/utils"
)

func registerCommands(app *pocketbase.PocketBase, cfg *config.Config, editor *services.EditorService, monitor *monitoring.Monitor) {
	app.RootCmd.AddCommand(
		newValidateCmd(cfg, monitor),
		newFmtCmd(editor),
		newNewEventCmd(editor),
		newQRCmd(cfg, editor),
		newAssetCmd(editor),
		newImportCmd(editor),
		newPublishCmd(cfg, editor, monitor),
	)
}

func newValidateCmd(cfg *config.Config, monitor *monitoring.Monitor) *cobra.Command {
	return &cobra.Command{
		Use:          "validate [file]",
		Short:        "Validate an events document",
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := cfg.CorpusPath
			if len(args) == 1 {
				path = args[0]
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			corpus, err := codec.UnmarshalCorpus(data)
			monitor.TrackSerialization("decode", err)
			if err != nil {
				return err
			}

			errs := validation.ValidateCorpus(corpus)
			monitor.TrackValidation(len(errs) == 0)
			if len(errs) > 0 {
				printFieldErrors(cmd, errs)
				return fmt.Errorf("%s: %d problem(s)", path, len(errs))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d event(s) valid\n", path, len(corpus.Events))
			return nil
		},
	}
}

func newFmtCmd(editor *services.EditorService) *cobra.Command {
	return &cobra.Command{
		Use:          "fmt",
		Short:        "Rewrite the corpus file in canonical form",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := editor.Load(); err != nil {
				return err
			}
			return editor.Save()
		},
	}
}

func newNewEventCmd(editor *services.EditorService) *cobra.Command {
	return &cobra.Command{
		Use:          "new-event",
		Short:        "Append a draft event with default values",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := editor.Load(); err != nil {
				return err
			}
			e, err := editor.NewEvent()
			if err != nil {
				return err
			}
			if err := editor.Save(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), e.ID)
			return nil
		},
	}
}

func newQRCmd(cfg *config.Config, editor *services.EditorService) *cobra.Command {
	var outDir string
	var payloadsOnly bool

	cmd := &cobra.Command{
		Use:          "qr <eventId>",
		Short:        "Write a QR code per specimen of an event",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := editor.Load(); err != nil {
				return err
			}
			if payloadsOnly {
				entries, err := editor.QRPayloads(args[0])
				if err != nil {
					return err
				}
				for _, entry := range entries {
					fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", entry.Specimen.ID, entry.Payload)
				}
				return nil
			}

			entries, paths, err := editor.ExportQR(args[0], outDir)
			if err != nil {
				return err
			}
			for i, entry := range entries {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", paths[i], entry.Payload)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&outDir, "out", "o", cfg.QROutputDir, "directory for the PNG files")
	cmd.Flags().BoolVar(&payloadsOnly, "payloads", false, "print payloads without writing images")
	return cmd
}

func newAssetCmd(editor *services.EditorService) *cobra.Command {
	var kindName string
	var overwrite bool

	cmd := &cobra.Command{
		Use:          "asset <eventId> <specimenId> <path>",
		Short:        "Copy a photo or audio note into the site and attach it to a specimen",
		Args:         cobra.ExactArgs(3),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := assets.ParseKind(kindName)
			if err != nil {
				return err
			}
			if err := editor.Load(); err != nil {
				return err
			}
			ref, err := editor.AttachAsset(args[0], args[1], args[2], kind, overwrite)
			if errors.Is(err, status.ErrCollisionDetected) {
				return fmt.Errorf("%w (use --overwrite to replace it)", err)
			}
			if err != nil {
				return err
			}
			if err := editor.Save(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s\n", ref.DestinationPath, ref.PublishedURL)
			return nil
		},
	}
	cmd.Flags().StringVar(&kindName, "kind", "auto", "asset kind: image, audio or auto")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "replace a different file with the same name")
	return cmd
}

func newImportCmd(editor *services.EditorService) *cobra.Command {
	return &cobra.Command{
		Use:          "import <file>",
		Short:        "Append the events of another document to the corpus",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			if err := editor.Load(); err != nil {
				return err
			}
			n, err := editor.Import(data)
			if err != nil {
				return err
			}
			if err := editor.Save(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d event(s)\n", n)
			return nil
		},
	}
}

func newPublishCmd(cfg *config.Config, editor *services.EditorService, monitor *monitoring.Monitor) *cobra.Command {
	return &cobra.Command{
		Use:          "publish",
		Short:        "Validate, link check and publish the non-draft events to Redis",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := editor.Load(); err != nil {
				return err
			}
			// saving first pins any newly assigned ids in the corpus file
			if err := editor.Save(); err != nil {
				printFieldErrors(cmd, err)
				return err
			}
			corpus, err := editor.Snapshot()
			if err != nil {
				return err
			}

			redisClient, err := utils.NewRedisClient(ctx, cfg.RedisURL, cfg.RedisPassword, cfg.RedisDB)
			if err != nil {
				return err
			}
			defer redisClient.Close()

			links := services.NewLinkChecker(cfg.SiteRoot, cfg.LinkCheckTimeout, cfg.LinkCheckRetries)
			publisher := services.NewPublishService(redisClient, services.NewNotifier(cfg), links, monitor, cfg)

			result, err := publisher.Publish(ctx, corpus)
			if err != nil {
				printFieldErrors(cmd, err)
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "published version %d: %d event(s), %d draft(s) skipped\n",
				result.Version, result.EventCount, len(result.Drafts))
			return nil
		},
	}
}

// printFieldErrors lists validation problems one per line before cobra
// prints the summary error.
func printFieldErrors(cmd *cobra.Command, err error) {
	var errs status.ValidationErrors
	if !errors.As(err, &errs) {
		return
	}
	for _, fe := range errs {
		fmt.Fprintln(cmd.OutOrStdout(), fe.String())
	}
}
