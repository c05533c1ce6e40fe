package main

import (
	"encoding/hex"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var readCmd = &cobra.Command{
	Use:   "read",
	Short: "Read flash memory.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		addr := getUint32(cmd, "addr")
		nread := getInt(cmd, "count")
		statusOnly := getFlag(cmd, "status")
		outFile := getString(cmd, "output")

		s := openSession(cmd)
		defer s.Close()

		if statusOnly {
			sr, err := s.prog.Status()
			if err != nil {
				s.Close()
				fatalf("read flash status register failed: %v", err)
			}
			fmt.Println(sr)
			return
		}

		data, err := s.prog.Read(addr, nread)
		if err != nil {
			s.Close()
			fatalf("read flash failed: %v", err)
		}
		if outFile != "" {
			if err := os.WriteFile(outFile, data, 0644); err != nil {
				fmt.Fprintln(os.Stderr, "write file failed:", err)
			}
			return
		}
		// Raw bytes when piped, hexdump on a terminal.
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			os.Stdout.Write(data)
			return
		}
		fmt.Print(hex.Dump(data))
	},
}

func init() {
	readCmd.Flags().Uint32("addr", 0, "start address")
	readCmd.Flags().IntP("count", "n", 256, "number of bytes to read")
	readCmd.Flags().BoolP("status", "s", false, "just print flash status register")
	readCmd.Flags().StringP("output", "o", "", "output file (default: hexdump)")
	rootCmd.AddCommand(readCmd)
}
