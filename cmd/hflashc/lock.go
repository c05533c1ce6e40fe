package main

import (
	"context"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func lockCommand(use, short string, lock bool) *cobra.Command {
	c := &cobra.Command{
		Use:   use,
		Short: short,
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

			op := s.prog.Unlock
			if lock {
				op = s.prog.Lock
			}
			if err := op(context.Background(), addr, n); err != nil {
				s.Close()
				fatalf("%s failed: %v", use, err)
			}
			log.Infof("%s 0x%08X+%d done", use, addr, n)
		},
	}
	c.Flags().Uint32("addr", 0, "start address")
	c.Flags().Int("len", 0, "number of bytes")
	c.Flags().Bool("all", false, "every region")
	return c
}

func init() {
	rootCmd.AddCommand(lockCommand("lock", "Lock the regions covering a byte range.", true))
	rootCmd.AddCommand(lockCommand("unlock", "Unlock the regions covering a byte range.", false))
}
