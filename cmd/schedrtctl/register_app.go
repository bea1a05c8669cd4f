package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/fpgarun/schedrt/pkg/config"
)

// appRegisterRequest mirrors internal/httpapi.appRegisterRequest.
type appRegisterRequest struct {
	App           string `json:"app"`
	BitstreamPath string `json:"bitstream_path,omitempty"`
	KernelName    string `json:"kernel_name,omitempty"`
	Kind          string `json:"kind"`
}

func newRegisterAppCmd() *cobra.Command {
	var (
		appName       string
		bitstreamPath string
		kernelName    string
		kind          string
		configPath    string
		addr          string
		interactive   bool
	)

	cmd := &cobra.Command{
		Use:   "register-app",
		Short: "Register an app, either against a running daemon's HTTP API or into its config.toml for next boot",
		RunE: func(cmd *cobra.Command, args []string) error {
			if interactive {
				if err := promptAppFields(&appName, &bitstreamPath, &kernelName, &kind); err != nil {
					return err
				}
			}
			if appName == "" {
				return fmt.Errorf("app name is required (use --app or --interactive)")
			}

			if addr != "" {
				if err := postApp(addr, appRegisterRequest{App: appName, BitstreamPath: bitstreamPath, KernelName: kernelName, Kind: kind}); err != nil {
					logErrorCmd(cmd, err)
					return err
				}
				color.Green("registered app %q (kind=%s) with %s", appName, kind, addr)
				return nil
			}

			entry := config.AppEntry{App: appName, BitstreamPath: bitstreamPath, KernelName: kernelName, Kind: kind}
			if err := appendAppEntry(configPath, entry); err != nil {
				logErrorCmd(cmd, err)
				return err
			}

			color.Green("registered app %q (kind=%s) in %s", appName, kind, configPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&appName, "app", "", "App name")
	cmd.Flags().StringVar(&bitstreamPath, "bitstream-path", "", "Bitstream path (fpga apps only)")
	cmd.Flags().StringVar(&kernelName, "kernel-name", "", "Kernel name")
	cmd.Flags().StringVar(&kind, "kind", "cpu", "Resource kind: cpu, zip, fft, fir")
	cmd.Flags().StringVar(&configPath, "config", "schedrt.toml", "Path to the daemon's config.toml (used when --addr is not set)")
	cmd.Flags().StringVar(&addr, "addr", "", "Base URL of a running schedrtd to register against instead of writing config.toml")
	cmd.Flags().BoolVar(&interactive, "interactive", false, "Prompt for fields instead of reading flags")

	return cmd
}

func postApp(addr string, req appRegisterRequest) error {
	body, err := json.Marshal(req)
	if err != nil {
		return err
	}
	resp, err := http.Post(addr+"/apps", "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("register app: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("register app: %s", string(data))
	}
	return nil
}

func promptAppFields(appName, bitstreamPath, kernelName, kind *string) error {
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("App name").Value(appName),
			huh.NewSelect[string]().
				Title("Resource kind").
				Options(
					huh.NewOption("cpu", "cpu"),
					huh.NewOption("zip", "zip"),
					huh.NewOption("fft", "fft"),
					huh.NewOption("fir", "fir"),
				).
				Value(kind),
			huh.NewInput().Title("Bitstream path (blank for cpu apps)").Value(bitstreamPath),
			huh.NewInput().Title("Kernel name").Value(kernelName),
		),
	)
	return form.Run()
}

func appendAppEntry(path string, entry config.AppEntry) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	_, err = fmt.Fprintf(f, "\n[[apps]]\napp = %q\nbitstream_path = %q\nkernel_name = %q\nkind = %q\n",
		entry.App, entry.BitstreamPath, entry.KernelName, entry.Kind)
	return err
}

func logErrorCmd(cmd *cobra.Command, err error) {
	color.Red("%s: %v", cmd.Name(), err)
}
