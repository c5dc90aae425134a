// Command knhk-cli is a thin REST client for the control plane, mirroring
// the teacher's cmd/ocx-cli: read env vars for the gateway address, dispatch
// on os.Args[1], print JSON responses.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

const version = "1.0.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	gateway := os.Getenv("CORE_GATEWAY_URL")
	if gateway == "" {
		gateway = "http://localhost:8080"
	}

	switch os.Args[1] {
	case "specs":
		cmdRegisterSpecs(gateway)
	case "drive":
		cmdDriveCase(gateway)
	case "receipts":
		cmdListReceipts(gateway)
	case "root":
		cmdCycleRoot(gateway)
	case "version":
		fmt.Printf("knhk-cli v%s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`knhk-cli v` + version + `

Usage: knhk-cli <command>

Commands:
  specs      Register a spec bag from stdin (JSON array of spec tuples)
  drive      Drive a case from stdin (JSON case-drive request)
  receipts   List recent receipts
  root       Print the current chain head for a cycle
  version    Print version
  help       Show this help

Environment:
  CORE_GATEWAY_URL   Control-plane REST address (default: http://localhost:8080)`)
}

var httpClient = &http.Client{Timeout: 10 * time.Second}

func cmdRegisterSpecs(gateway string) {
	body, err := io.ReadAll(os.Stdin)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read stdin: %v\n", err)
		os.Exit(1)
	}
	post(gateway+"/specs", body)
}

func cmdDriveCase(gateway string) {
	body, err := io.ReadAll(os.Stdin)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read stdin: %v\n", err)
		os.Exit(1)
	}
	post(gateway+"/cases/cli/drive", body)
}

func cmdListReceipts(gateway string) {
	get(gateway + "/receipts")
}

func cmdCycleRoot(gateway string) {
	if len(os.Args) < 3 {
		fmt.Fprintln(os.Stderr, "usage: knhk-cli root <cycle-id>")
		os.Exit(1)
	}
	get(gateway + "/cycles/" + os.Args[2] + "/root")
}

func post(url string, body []byte) {
	resp, err := httpClient.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		fmt.Fprintf(os.Stderr, "request failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	printResponse(resp)
}

func get(url string) {
	resp, err := httpClient.Get(url)
	if err != nil {
		fmt.Fprintf(os.Stderr, "request failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	printResponse(resp)
}

func printResponse(resp *http.Response) {
	var out bytes.Buffer
	if _, err := io.Copy(&out, resp.Body); err != nil {
		fmt.Fprintf(os.Stderr, "read response: %v\n", err)
		os.Exit(1)
	}
	var pretty bytes.Buffer
	if json.Indent(&pretty, out.Bytes(), "", "  ") == nil {
		fmt.Println(pretty.String())
	} else {
		fmt.Println(out.String())
	}
	if resp.StatusCode >= 400 {
		os.Exit(1)
	}
}
