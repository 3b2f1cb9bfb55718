package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"aocascore/pkg/analysis"
	"aocascore/pkg/config"
	"aocascore/pkg/render"
	"aocascore/pkg/scoring"
	"aocascore/pkg/selection"
	"aocascore/pkg/volume"
)

// runScore wires one pipeline run from CLI flags: load the volume, build
// the selection, run the analyzer, print or serialize the report.
func runScore(cmd *cobra.Command, flags *runFlags, statsOnly bool) error {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}

	if cfg.Output.Verbose {
		log.SetLevel(log.InfoLevel)
	} else {
		log.SetLevel(log.WarnLevel)
	}

	vol, err := loadVolume(flags)
	if err != nil {
		return err
	}

	sel, err := buildSelection(flags)
	if err != nil {
		return err
	}

	sex, err := scoring.ParseSex(flags.sex)
	if err != nil {
		return err
	}

	analyzer := analysis.NewAnalyzer(analysis.Params{
		Volume:    vol,
		Selection: sel,
		Patient: analysis.PatientContext{
			Name: flags.name,
			ID:   flags.id,
			Sex:  sex,
			Age:  flags.age,
		},
		Config: cfg,
	})

	report, err := analyzer.Run(cmd.Context())
	if err != nil {
		return err
	}

	if statsOnly {
		printStatistics(report)
	} else {
		printReport(report)
	}

	if flags.jsonOut != "" {
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return errors.Wrap(err, "serializing report")
		}
		if err := os.WriteFile(flags.jsonOut, data, 0644); err != nil {
			return errors.Wrap(err, "writing report")
		}
		log.WithField("path", flags.jsonOut).Info("report written")
	}

	if flags.renderDir != "" {
		r := render.NewRenderer(vol, report.Lesions, render.DefaultWindow)
		n, err := r.SaveLesionSlices(flags.renderDir)
		if err != nil {
			return errors.Wrap(err, "rendering review slices")
		}
		log.WithFields(log.Fields{"path": flags.renderDir, "slices": n}).Info("review images written")
	}
	return nil
}

// loadVolume reads the CT volume from whichever input flag was given.
func loadVolume(flags *runFlags) (*volume.Volume, error) {
	switch {
	case flags.dicomDir != "" && flags.rawPath != "":
		return nil, errors.New("use either --dicom or --raw, not both")
	case flags.dicomDir != "":
		return volume.LoadDICOMDir(flags.dicomDir)
	case flags.rawPath != "":
		return volume.LoadRaw(flags.rawPath)
	}
	return nil, errors.New("a volume input is required (--dicom or --raw)")
}

// buildSelection converts the selection flags into the engine's tagged
// union. Exactly one variant must be given.
func buildSelection(flags *runFlags) (selection.Selection, error) {
	given := 0
	for _, f := range []string{flags.seed, flags.box, flags.paint} {
		if f != "" {
			given++
		}
	}
	if given != 1 {
		return selection.Selection{}, errors.New("exactly one of --seed, --box or --paint is required")
	}

	switch {
	case flags.seed != "":
		p, err := parsePoint(flags.seed)
		if err != nil {
			return selection.Selection{}, errors.Wrap(err, "parsing --seed")
		}
		return selection.NewSeed(p), nil

	case flags.box != "":
		parts := strings.Split(flags.box, ":")
		if len(parts) != 2 {
			return selection.Selection{}, errors.New("--box must be x0,y0,z0:x1,y1,z1")
		}
		minP, err := parsePoint(parts[0])
		if err != nil {
			return selection.Selection{}, errors.Wrap(err, "parsing --box minimum")
		}
		maxP, err := parsePoint(parts[1])
		if err != nil {
			return selection.Selection{}, errors.Wrap(err, "parsing --box maximum")
		}
		box := selection.OrientedBox{Min: minP, Max: maxP}
		if flags.rot != "" {
			if box.RotLR, box.RotPA, box.RotIS, err = parseRotation(flags.rot); err != nil {
				return selection.Selection{}, errors.Wrap(err, "parsing --rot")
			}
		}
		return selection.NewBox(box), nil

	default:
		points, err := readPaintFile(flags.paint)
		if err != nil {
			return selection.Selection{}, err
		}
		return selection.NewPaint(points), nil
	}
}

func parsePoint(s string) (selection.Point, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return selection.Point{}, fmt.Errorf("expected x,y,z, got %q", s)
	}
	var coords [3]int
	for i, part := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return selection.Point{}, err
		}
		coords[i] = v
	}
	return selection.Point{X: coords[0], Y: coords[1], Z: coords[2]}, nil
}

func parseRotation(s string) (lr, pa, is float64, err error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return 0, 0, 0, fmt.Errorf("expected lr,pa,is, got %q", s)
	}
	var angles [3]float64
	for i, part := range parts {
		angles[i], err = strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return 0, 0, 0, err
		}
	}
	return angles[0], angles[1], angles[2], nil
}

// readPaintFile reads painted voxel coordinates, one x,y,z per line. Blank
// lines and #-comments are skipped.
func readPaintFile(path string) ([]selection.Point, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "opening paint file")
	}
	defer f.Close()

	var points []selection.Point
	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		p, err := parsePoint(text)
		if err != nil {
			return nil, errors.Wrapf(err, "paint file line %d", line)
		}
		points = append(points, p)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "reading paint file")
	}
	return points, nil
}
