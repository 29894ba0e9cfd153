package cli

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func Main() {
	_ = godotenv.Load() // best-effort: load .env if present

	root := &cobra.Command{
		Use:          "vertcut <input>",
		Short:        "Cut vertically-cropped clips from a landscape video",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, args[0])
		},
	}

	root.SetOut(os.Stdout)
	root.SetErr(os.Stderr)
	root.SilenceErrors = true

	// Visible flags
	root.Flags().String("clips", "", "JSON file with requested clips (title, start_time, end_time)")
	root.Flags().String("out", "out", "Output directory")
	root.Flags().Bool("portrait", false, "Crop clips to a portrait window")
	root.Flags().Bool("active-speaker", false, "Follow the active speaker (implies --portrait)")
	root.Flags().String("transcript", "", "Optional ASR transcript JSON for clip boundary refinement")
	root.Flags().BoolP("verbose", "v", false, "Debug logging")
	_ = root.MarkFlagRequired("clips")

	// Hidden tuning flags (internal)
	root.Flags().Float64("jitter", 0.16, "Center delta (per crop width) treated as noise")
	root.Flags().Float64("min-segment", 0.9, "Minimum crop segment duration seconds")
	_ = root.Flags().MarkHidden("jitter")
	_ = root.Flags().MarkHidden("min-segment")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
