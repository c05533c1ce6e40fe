package main

import (
	"context"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var eraseCmd = &cobra.Command{
	Use:   "erase",
	Short: "Erase the pages covering a byte range.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		addr := getUint32(cmd, "addr")
		n := getInt(cmd, "len")
		all := getFlag(cmd, "all")

		s := openSession(cmd)
		defer s.Close()

		if all {
			g := s.prog.Geometry()
			addr, n = g.FlashBase, g.Size()
		}
		if err := s.prog.Erase(context.Background(), addr, n); err != nil {
			s.Close()
			fatalf("erase failed: %v", err)
		}
		first, last := s.prog.Geometry().PageRange(addr, n)
		log.Infof("erased pages %d-%d", first, last-1)
	},
}

func init() {
	eraseCmd.Flags().Uint32("addr", 0, "start address")
	eraseCmd.Flags().Int("len", 0, "number of bytes")
	eraseCmd.Flags().Bool("all", false, "erase the entire flash")
	rootCmd.AddCommand(eraseCmd)
}
