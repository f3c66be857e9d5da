// Command matconv converts legacy matrix/histogram files between formats,
// optionally projecting or rebinning on the way.
//
//	matconv -in run42.mate -out run42.lc1 -format lc1
//	matconv -in gg.gf2 -out proj.txt -format txt -project rows
//	matconv -in run.lc1 -out small.lc1 -format lc1 -rebin 4 -scale 0.5
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"go.uber.org/zap"

	"github.com/kspect/mfile/mfile"
)

type config struct {
	in      string
	out     string
	format  string
	project string
	rebin   int
	scale   float64
	verbose bool
}

func newConfig() *config {
	c := &config{}
	flag.StringVar(&c.in, "in", "", "source locator (path or shm:<key>)")
	flag.StringVar(&c.out, "out", "", "destination locator")
	flag.StringVar(&c.format, "format", "", "destination format (lc1 lc2 gf2 mate oldmat trixi txt)")
	flag.StringVar(&c.project, "project", "", "project a matrix: rows or cols")
	flag.IntVar(&c.rebin, "rebin", 1, "rebin factor (spectra only)")
	flag.Float64Var(&c.scale, "scale", 1, "scale factor (spectra only)")
	flag.BoolVar(&c.verbose, "v", false, "verbose logging")
	flag.Parse()
	return c
}

func (c *config) request() mfile.Request {
	req := mfile.Request{
		Source: c.in,
		Op:     mfile.OpConvert,
		Target: c.format,
		Rebin:  c.rebin,
		Scale:  c.scale,
	}
	switch {
	case c.project == "rows":
		req.Op = mfile.OpProject
		req.Axis = mfile.AxisRows
	case c.project == "cols":
		req.Op = mfile.OpProject
		req.Axis = mfile.AxisCols
	case c.rebin != 1 || c.scale != 1:
		req.Op = mfile.OpAdjust
	}
	return req
}

func main() {
	cfg := newConfig()
	if cfg.in == "" || cfg.out == "" || cfg.format == "" {
		flag.Usage()
		os.Exit(2)
	}

	logger := zap.NewNop()
	if cfg.verbose {
		var err error
		if logger, err = zap.NewDevelopment(); err != nil {
			log.Fatal(err)
		}
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		fmt.Fprintf(os.Stderr, "matconv: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg *config, logger *zap.Logger) error {
	src, err := mfile.Open(cfg.in)
	if err != nil {
		return err
	}
	defer src.Close()

	logger.Info("opened source",
		zap.String("locator", cfg.in),
		zap.String("format", src.FormatName()),
		zap.Int("rank", src.Rank()),
		zap.Int("rows", src.Rows()),
		zap.Int("cols", src.Cols()),
		zap.Stringer("type", src.ElemType()))

	req := cfg.request()
	rd, err := mfile.ResultDescriptor(src, req, mfile.DefaultRegistry())
	if err != nil {
		return err
	}

	dst, err := mfile.Create(cfg.out, cfg.format, rd)
	if err != nil {
		return err
	}
	defer dst.Close()

	if err := mfile.Run(dst, src, req); err != nil {
		return err
	}

	fmt.Printf("%s: %s %dx%d %s -> %s: %s %dx%d %s\n",
		cfg.in, src.FormatName(), src.Rows(), src.Cols(), src.ElemType(),
		cfg.out, dst.FormatName(), dst.Rows(), dst.Cols(), dst.ElemType())
	return nil
}
