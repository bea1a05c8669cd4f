package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/hokaccha/go-prettyjson"
	"github.com/spf13/cobra"
)

// taskSubmitRequest mirrors internal/httpapi.taskSubmitRequest — the wire
// contract between schedrtctl and a running schedrtd's POST /tasks.
type taskSubmitRequest struct {
	App          string   `json:"app"`
	Priority     int      `json:"priority"`
	DependsOn    []uint64 `json:"depends_on,omitempty"`
	Required     string   `json:"required,omitempty"`
	EstRuntimeMs int64    `json:"est_runtime_ms,omitempty"`
}

type taskSubmitResponse struct {
	ID uint64 `json:"id"`
}

// taskResultResponse mirrors internal/httpapi.taskResultResponse.
type taskResultResponse struct {
	ID          uint64 `json:"id"`
	OK          bool   `json:"ok"`
	Message     string `json:"message"`
	TimeNs      int64  `json:"time_ns"`
	Accelerator string `json:"accelerator"`
}

func newSubmitCmd() *cobra.Command {
	var (
		addr       string
		app        string
		priority   int
		deps       string
		required   string
		estRuntime time.Duration
		poll       time.Duration
		timeout    time.Duration
		jsonOut    bool
	)

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit an ad hoc task to a running schedrtd instance and print its result",
		RunE: func(cmd *cobra.Command, args []string) error {
			if app == "" {
				return fmt.Errorf("--app is required")
			}
			dependsOn, err := parseDeps(deps)
			if err != nil {
				return err
			}

			id, err := postTask(addr, taskSubmitRequest{
				App:          app,
				Priority:     priority,
				DependsOn:    dependsOn,
				Required:     required,
				EstRuntimeMs: estRuntime.Milliseconds(),
			})
			if err != nil {
				return err
			}

			result, err := pollResult(addr, id, poll, timeout)
			if err != nil {
				return err
			}

			return printResult(result, jsonOut)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "http://127.0.0.1:8080", "Base URL of a running schedrtd's status API")
	cmd.Flags().StringVar(&app, "app", "", "App to run (must already be registered with the daemon)")
	cmd.Flags().IntVar(&priority, "priority", 0, "Task priority (higher runs first)")
	cmd.Flags().StringVar(&deps, "deps", "", "Comma-separated task IDs this task depends on")
	cmd.Flags().StringVar(&required, "required", "", "Resource kind override: cpu, zip, fft, fir")
	cmd.Flags().DurationVar(&estRuntime, "est-runtime", 0, "Estimated runtime hint for the scheduler")
	cmd.Flags().DurationVar(&poll, "poll-interval", 100*time.Millisecond, "How often to poll for the result")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "How long to wait for the task to complete")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the result as pretty JSON instead of colored text")

	return cmd
}

func parseDeps(s string) ([]uint64, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]uint64, 0, len(parts))
	for _, p := range parts {
		id, err := strconv.ParseUint(strings.TrimSpace(p), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid --deps entry %q: %w", p, err)
		}
		out = append(out, id)
	}
	return out, nil
}

func postTask(addr string, req taskSubmitRequest) (uint64, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return 0, err
	}
	resp, err := http.Post(addr+"/tasks", "application/json", bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("submit task: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		return 0, fmt.Errorf("submit task: %s", readBody(resp))
	}

	var out taskSubmitResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("decode submit response: %w", err)
	}
	return out.ID, nil
}

func pollResult(addr string, id uint64, interval, timeout time.Duration) (taskResultResponse, error) {
	deadline := time.Now().Add(timeout)
	url := fmt.Sprintf("%s/tasks/%d", addr, id)

	for {
		resp, err := http.Get(url)
		if err != nil {
			return taskResultResponse{}, fmt.Errorf("poll task: %w", err)
		}
		if resp.StatusCode == http.StatusOK {
			var out taskResultResponse
			decodeErr := json.NewDecoder(resp.Body).Decode(&out)
			resp.Body.Close()
			if decodeErr != nil {
				return taskResultResponse{}, fmt.Errorf("decode task response: %w", decodeErr)
			}
			return out, nil
		}
		resp.Body.Close()

		if time.Now().After(deadline) {
			return taskResultResponse{}, fmt.Errorf("timed out waiting for task %d to complete", id)
		}
		time.Sleep(interval)
	}
}

func printResult(res taskResultResponse, jsonOut bool) error {
	if jsonOut {
		formatted, err := prettyjson.Marshal(res)
		if err != nil {
			return err
		}
		fmt.Println(string(formatted))
		return nil
	}

	line := fmt.Sprintf("task %d: %s (accelerator=%s, time=%dns)", res.ID, res.Message, res.Accelerator, res.TimeNs)
	if res.OK {
		color.Green(line)
	} else {
		color.Red(line)
	}
	return nil
}

func readBody(resp *http.Response) string {
	data, _ := io.ReadAll(resp.Body)
	return string(data)
}
