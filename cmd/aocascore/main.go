package main

import (
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"aocascore/pkg/config"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "aocascore",
		Short: "Aortic valve calcium quantification engine (Agatston method)",
	}

	rootCmd.PersistentFlags().String("config", "aocascore.yaml", "configuration file path")

	rootCmd.AddCommand(scoreCmd())
	rootCmd.AddCommand(statsCmd())
	rootCmd.AddCommand(configCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// runFlags are the inputs shared by the score and stats commands.
type runFlags struct {
	dicomDir string
	rawPath  string

	seed  string
	box   string
	rot   string
	paint string

	sex  string
	age  int
	name string
	id   string

	jsonOut   string
	renderDir string
}

func (f *runFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.dicomDir, "dicom", "", "directory containing a non-contrast CT DICOM series")
	cmd.Flags().StringVar(&f.rawPath, "raw", "", "raw int16 volume file (with YAML sidecar)")
	cmd.Flags().StringVar(&f.seed, "seed", "", "seed voxel for click-and-grow, as x,y,z")
	cmd.Flags().StringVar(&f.box, "box", "", "box region, as x0,y0,z0:x1,y1,z1")
	cmd.Flags().StringVar(&f.rot, "rot", "", "box rotation in degrees, as lr,pa,is")
	cmd.Flags().StringVar(&f.paint, "paint", "", "file of painted voxel coordinates, one x,y,z per line")
	cmd.Flags().StringVar(&f.sex, "sex", "", "patient sex (M or F, required)")
	cmd.Flags().IntVar(&f.age, "age", 0, "patient age in years")
	cmd.Flags().StringVar(&f.name, "name", "", "patient name")
	cmd.Flags().StringVar(&f.id, "id", "", "patient/accession identifier")
	cmd.Flags().StringVar(&f.jsonOut, "json", "", "write the full report as JSON to this path")
	cmd.Flags().StringVar(&f.renderDir, "render-dir", "", "write per-slice review images with the calcium overlay to this directory")
}

func scoreCmd() *cobra.Command {
	var flags runFlags
	cmd := &cobra.Command{
		Use:   "score",
		Short: "Run the full scoring pipeline and print the result",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runScore(cmd, &flags, false)
		},
	}
	flags.register(cmd)
	return cmd
}

func statsCmd() *cobra.Command {
	var flags runFlags
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Run the pipeline and print distribution statistics only",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runScore(cmd, &flags, true)
		},
	}
	flags.register(cmd)
	return cmd
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "init [path]",
		Short: "Write a configuration file with the documented defaults",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			path := "aocascore.yaml"
			if len(args) == 1 {
				path = args[0]
			}
			if err := config.CreateDefaultConfigFile(path); err != nil {
				return err
			}
			log.WithField("path", path).Info("default configuration written")
			return nil
		},
	})
	return cmd
}
