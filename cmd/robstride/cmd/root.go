package cmd

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/avast/retry-go"
	"github.com/spf13/cobra"

	robstride "github.com/n2048-creative-technology/blender-robstride"
	_ "github.com/n2048-creative-technology/blender-robstride/adapter"
	"github.com/n2048-creative-technology/blender-robstride/internal/config"
)

const (
	flagConfig    = "config"
	flagInterface = "interface"
	flagChannel   = "channel"
	flagBitrate   = "bitrate"
	flagHost      = "host"
	flagBackend   = "backend"
	flagDebug     = "debug"
	flagSimulate  = "simulate"
)

var rootCmd = &cobra.Command{
	Use:          "robstride",
	Short:        "Robstride CAN node tool",
	Long:         "Scan, enable, move and read back Robstride actuator nodes on a CAN bus.",
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute(ctx context.Context) {
	rootCmd.ExecuteContext(ctx)
}

func init() {
	log.SetFlags(0)
	pf := rootCmd.PersistentFlags()
	pf.String(flagConfig, "", "YAML config file")
	pf.StringP(flagInterface, "i", "socketcan", "transport: socketcan, slcan or loopback")
	pf.StringP(flagChannel, "c", "can0", "bus channel or serial port")
	pf.IntP(flagBitrate, "b", 1_000_000, "bus bitrate")
	pf.String(flagHost, "0xAA", "host/master id used as frame source")
	pf.String(flagBackend, "raw", "preferred backend: vendor, generic or raw")
	pf.BoolP(flagDebug, "d", false, "trace frames")
	pf.Bool(flagSimulate, false, "enable simulated nodes")
}

// loadConfig merges the optional config file with any explicitly set flags;
// flags win.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.Default()
	if path, _ := cmd.Flags().GetString(flagConfig); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	f := cmd.Flags()
	if f.Changed(flagInterface) {
		cfg.Interface, _ = f.GetString(flagInterface)
	}
	if f.Changed(flagChannel) {
		cfg.Channel, _ = f.GetString(flagChannel)
	}
	if f.Changed(flagBitrate) {
		cfg.Bitrate, _ = f.GetInt(flagBitrate)
	}
	if f.Changed(flagBackend) {
		cfg.Backend, _ = f.GetString(flagBackend)
	}
	if f.Changed(flagSimulate) {
		cfg.Simulate, _ = f.GetBool(flagSimulate)
	}
	if f.Changed(flagHost) {
		s, _ := f.GetString(flagHost)
		host, err := strconv.ParseUint(s, 0, 16)
		if err != nil {
			return nil, fmt.Errorf("invalid host id %q: %w", s, err)
		}
		cfg.HostID = uint16(host)
	}
	return cfg, cfg.Validate()
}

// connectManager builds a manager from the merged config and connects it,
// retrying the bus open a few times before giving up.
func connectManager(cmd *cobra.Command) (*robstride.Manager, *config.Config, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	debug, _ := cmd.Flags().GetBool(flagDebug)
	m := robstride.NewManager(robstride.Config{
		Interface: cfg.Interface,
		Channel:   cfg.Channel,
		Bitrate:   cfg.Bitrate,
		HostID:    cfg.HostID,
		Preferred: robstride.ParseBackendKind(cfg.Backend),
		Simulate:  cfg.Simulate,
		Debug:     debug,
		OnMessage: func(msg string) { log.Println(msg) },
		OnError: func(err error) {
			if debug {
				log.Println(err)
			}
		},
	})
	m.SetScanOptions(uint8(cfg.Scan.Min), uint8(cfg.Scan.Max), cfg.Scan.Quick)
	err = retry.Do(
		func() error {
			if !m.Connect() {
				return robstride.ErrTransportUnavailable
			}
			return nil
		},
		retry.Attempts(3),
		retry.Delay(500*time.Millisecond),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("could not open %s/%s: %w", cfg.Interface, cfg.Channel, err)
	}
	return m, cfg, nil
}

// parseNodeID accepts decimal or 0x.. hex node ids.
func parseNodeID(s string) (uint8, error) {
	id, err := strconv.ParseUint(s, 0, 8)
	if err != nil || id > 127 {
		return 0, fmt.Errorf("node id %q must be 0..127", s)
	}
	return uint8(id), nil
}
