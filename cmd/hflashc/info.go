package main

import (
	"fmt"

	"github.com/gentam/hflashc"
	"github.com/spf13/cobra"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Print flash controller parameters and status.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		s := openSession(cmd)
		defer s.Close()
		g := s.prog.Geometry()

		version, err := s.prog.Version()
		if err != nil {
			s.Close()
			fatalf("read flash version register failed: %v", err)
		}
		sr, err := s.prog.Status()
		if err != nil {
			s.Close()
			fatalf("read flash status register failed: %v", err)
		}

		fmt.Printf("Variant:         %s\n", g.Name)
		fmt.Printf("Flash base:      %#08x\n", g.FlashBase)
		fmt.Printf("Flash size:      %dKB\n", g.Size()>>10)
		fmt.Printf("Page size:       %dB\n", g.PageSize)
		fmt.Printf("Pages:           %d\n", g.PageCount)
		fmt.Printf("Region pages:    %d\n", g.RegionPages())
		fmt.Printf("Controller base: %#08x\n", g.RegBase)
		fmt.Printf("Version:         %#x\n", version)
		fmt.Printf("Status:          %s\n", sr)
		for r := range hflashc.LockRegions {
			if sr.Locked(r) {
				first := r * g.RegionPages()
				fmt.Printf("Locked region %d: pages %d-%d\n", r, first, first+g.RegionPages()-1)
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
}
