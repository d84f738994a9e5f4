package cmd

import (
	"log"
	"strconv"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(pidCmd)
}

var pidCmd = &cobra.Command{
	Use:   "pid <node> <kp> <ki> <kd>",
	Short: "Write tuning gains (best effort, backend dependent)",
	Args:  cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseNodeID(args[0])
		if err != nil {
			return err
		}
		var gains [3]float64
		for i, s := range args[1:] {
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return err
			}
			gains[i] = v
		}
		m, _, err := connectManager(cmd)
		if err != nil {
			return err
		}
		defer m.Disconnect()
		m.SetPID(id, gains[0], gains[1], gains[2])
		log.Printf("node %d: kp=%g ki=%g kd=%g requested", id, gains[0], gains[1], gains[2])
		return nil
	},
}
