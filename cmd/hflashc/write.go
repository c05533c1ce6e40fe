package main

import (
	"context"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var writeCmd = &cobra.Command{
	Use:   "write",
	Short: "Write a file to flash.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		filename := getString(cmd, "file")
		addr := getUint32(cmd, "addr")
		n := getInt(cmd, "len")
		bulkErase := getFlag(cmd, "erase")

		if filename == "" {
			fatalf("input file is required")
		}
		data, err := os.ReadFile(filename)
		if err != nil {
			fatalf("failed to read file: %v", err)
		}
		if n == 0 {
			n = len(data)
		}

		s := openSession(cmd)
		defer s.Close()

		ctx := context.Background()
		if bulkErase {
			g := s.prog.Geometry()
			if err := s.prog.Erase(ctx, g.FlashBase, g.Size()); err != nil {
				s.Close()
				fatalf("bulk erase flash failed: %v", err)
			}
		}

		if err := s.prog.Write(ctx, addr, data, n); err != nil {
			s.Close()
			fatalf("write flash failed: %v", err)
		}
		log.Infof("wrote %d bytes at 0x%08X", n, addr)
	},
}

func init() {
	writeCmd.Flags().StringP("file", "f", "", "input file")
	writeCmd.Flags().Uint32("addr", 0, "start address")
	writeCmd.Flags().Int("len", 0, "number of bytes to write (default: file size)")
	writeCmd.Flags().BoolP("erase", "e", false, "bulk erase entire flash first")
	rootCmd.AddCommand(writeCmd)
}
