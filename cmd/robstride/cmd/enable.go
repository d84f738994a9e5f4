package cmd

import (
	"log"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(enableCmd)
	rootCmd.AddCommand(disableCmd)
}

var enableCmd = &cobra.Command{
	Use:   "enable <node>",
	Short: "Enable a node (position mode + power on)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseNodeID(args[0])
		if err != nil {
			return err
		}
		m, _, err := connectManager(cmd)
		if err != nil {
			return err
		}
		defer m.Disconnect()
		m.EnableNode(id, true)
		log.Printf("enable frames sent to node %d", id)
		return nil
	},
}

var disableCmd = &cobra.Command{
	Use:   "disable <node>",
	Short: "Disable/stop a node",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseNodeID(args[0])
		if err != nil {
			return err
		}
		m, _, err := connectManager(cmd)
		if err != nil {
			return err
		}
		defer m.Disconnect()
		m.EnableNode(id, false)
		log.Printf("stop frames sent to node %d", id)
		return nil
	},
}
