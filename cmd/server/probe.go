package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/williamzujkowski/obmc-manager/internal/bmc"
	"github.com/williamzujkowski/obmc-manager/internal/ipmi"
	"github.com/williamzujkowski/obmc-manager/internal/modules"
	"github.com/williamzujkowski/obmc-manager/internal/ssh"
)

var probeCmd = &cobra.Command{
	Use:   "probe [host-id]",
	Short: "Connect to a host and report its profile and firmware",
	Long: `Connect to a host, select its device profile and print the running firmware.

Examples:
  # Probe a single host, including SSH and IPMI reachability
  obmc-manager probe --host https://10.0.0.5 --pass 0penBmc --ssh --ipmi

  # Probe a host from the config file
  obmc-manager probe rack1-node3 --config hosts.yaml
`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		hostConfigs, err := hosts(v)
		if err != nil {
			return err
		}
		id := v.GetString(configHostID)
		if len(args) == 1 {
			id = args[0]
		}
		host, ok := hostConfigs[id]
		if !ok {
			return fmt.Errorf("host not found: %s", id)
		}

		client, err := bmc.Connect(host.RedfishConfig(nil))
		if err != nil {
			return err
		}
		firmware, err := modules.NewRunner(client, nil).FirmwareInfo()
		if err != nil {
			return err
		}

		report := map[string]any{
			"host":     id,
			"profile":  client.Profile(),
			"system":   client.SystemID(),
			"manager":  client.ManagerID(),
			"firmware": firmware.Data,
		}

		ctx := cmd.Context()
		if probeSSH, _ := cmd.Flags().GetBool("ssh"); probeSSH {
			version, err := ssh.NewProbe(host.Address(), host.SSHPort, host.Username, host.Password).Login(ctx)
			report["ssh"] = outcome(version, err)
		}
		if probeIPMI, _ := cmd.Flags().GetBool("ipmi"); probeIPMI {
			status, err := ipmi.NewClient(host.Address(), host.IPMIPort, host.Username, host.Password).ChassisStatus(ctx)
			report["ipmi"] = outcome(status, err)
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	},
}

func init() {
	rootCmd.AddCommand(probeCmd)

	probeCmd.Flags().Bool("ssh", false, "also log in over SSH")
	probeCmd.Flags().Bool("ipmi", false, "also read chassis status over IPMI")
}

func outcome(v any, err error) any {
	if err != nil {
		return map[string]string{"error": err.Error()}
	}
	return v
}
