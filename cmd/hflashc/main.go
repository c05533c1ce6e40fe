package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/gentam/hflashc"
	"github.com/gentam/hflashc/nvmtest"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"periph.io/x/conn/v3/gpio"
)

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}

var rootCmd = &cobra.Command{
	Use:   "hflashc",
	Short: "Program the internal flash of SAM4L microcontrollers.",
	Long: `Program the internal flash of SAM4L microcontrollers through the HFLASHC
controller, reached over an FT2232H SPI register bridge, physical memory, or
a simulated controller.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if getFlag(cmd, "verbose") {
			log.SetLevel(log.DebugLevel)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().String("port", "ftdi", "controller access: ftdi, mmio or sim")
	rootCmd.PersistentFlags().String("variant", hflashc.DefaultVariant,
		"device variant ("+strings.Join(hflashc.Variants(), ", ")+") or auto to read FPR")
	rootCmd.PersistentFlags().Int("max-polls", 1<<20, "status reads per command before giving up (0: unbounded)")
	rootCmd.PersistentFlags().Duration("timeout", 0, "time per command before giving up (0: datasheet figure)")
	rootCmd.PersistentFlags().Bool("strict", false, "reject writes that are not whole doublewords")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "log every flash command")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(2)
	}
}

// Get an expected flag, or exit if an error arises.
func getFlag(cmd *cobra.Command, flag string) bool {
	r, err := cmd.Flags().GetBool(flag)
	if err != nil {
		fatalf("%v", err)
	}
	return r
}

func getInt(cmd *cobra.Command, flag string) int {
	r, err := cmd.Flags().GetInt(flag)
	if err != nil {
		fatalf("%v", err)
	}
	return r
}

func getString(cmd *cobra.Command, flag string) string {
	r, err := cmd.Flags().GetString(flag)
	if err != nil {
		fatalf("%v", err)
	}
	return r
}

func getUint32(cmd *cobra.Command, flag string) uint32 {
	r, err := cmd.Flags().GetUint32(flag)
	if err != nil {
		fatalf("%v", err)
	}
	return r
}

func getDuration(cmd *cobra.Command, flag string) time.Duration {
	r, err := cmd.Flags().GetDuration(flag)
	if err != nil {
		fatalf("%v", err)
	}
	return r
}

// session is an open programmer plus whatever must be undone on exit.
type session struct {
	prog    *hflashc.Programmer
	cleanup []func()
}

func (s *session) Close() {
	for i := len(s.cleanup) - 1; i >= 0; i-- {
		s.cleanup[i]()
	}
}

// openSession connects to the controller selected by the persistent flags
// and returns its programmer.
func openSession(cmd *cobra.Command) *session {
	s := &session{}

	variant := getString(cmd, "variant")
	geo, known := hflashc.Variant(variant)
	if !known {
		if variant != "auto" {
			fatalf("unknown variant %q", variant)
		}
		geo, _ = hflashc.Variant(hflashc.DefaultVariant)
	}

	var port hflashc.Port
	switch name := getString(cmd, "port"); name {
	case "ftdi":
		d, err := hflashc.OpenFTDI()
		if err != nil {
			fatalf("%v", err)
		}
		// keep firmware off the flash controller
		if err := d.ResetTarget(gpio.Low); err != nil {
			fatalf("hold target in reset: %v", err)
		}
		s.cleanup = append(s.cleanup, func() {
			if err := d.ResetTarget(gpio.High); err != nil {
				log.WithError(err).Warn("release target reset")
			}
		})
		port = d.Port
	case "mmio":
		m, err := hflashc.NewMMIOPort(geo)
		if err != nil {
			fatalf("%v", err)
		}
		s.cleanup = append(s.cleanup, func() { m.Close() })
		port = m
	case "sim":
		log.Warn("using a simulated controller, nothing reaches hardware")
		port = nvmtest.New(geo)
	default:
		fatalf("unknown port %q", name)
	}

	if variant == "auto" {
		detected, err := hflashc.Detect(port, geo.RegBase)
		if err != nil {
			s.Close()
			fatalf("detect geometry: %v", err)
		}
		geo = detected
	}

	tok, err := hflashc.Claim(port)
	if err != nil {
		s.Close()
		fatalf("%v", err)
	}

	opts := []hflashc.Option{
		hflashc.WithGeometry(geo),
		hflashc.WithMaxPolls(getInt(cmd, "max-polls")),
		hflashc.WithTimeout(getDuration(cmd, "timeout")),
		hflashc.WithLogger(log.StandardLogger()),
	}
	if getFlag(cmd, "strict") {
		opts = append(opts, hflashc.WithStrictAlignment())
	}
	s.prog, err = hflashc.New(tok, opts...)
	if err != nil {
		s.Close()
		fatalf("%v", err)
	}

	log.WithFields(log.Fields{
		"variant": geo.Name,
		"pages":   geo.PageCount,
		"page":    geo.PageSize,
	}).Debug("controller ready")
	return s
}
