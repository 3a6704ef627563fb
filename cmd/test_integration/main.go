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

const (
	pollInterval = 500 * time.Millisecond
	pollTimeout  = 2 * time.Minute
)

type runSnapshot struct {
	ID       string  `json:"id"`
	State    string  `json:"state"`
	Progress float64 `json:"progress"`
	Articles int     `json:"articles"`
	Error    string  `json:"error"`
	Clusters []struct {
		IDs    []int    `json:"ids"`
		Titles []string `json:"titles"`
	} `json:"clusters"`
}

func main() {
	baseURL := os.Getenv("SIMFINDER_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	threshold := 0.9
	if len(os.Args) > 1 {
		if _, err := fmt.Sscanf(os.Args[1], "%g", &threshold); err != nil {
			fmt.Printf("invalid threshold %q\n", os.Args[1])
			os.Exit(2)
		}
	}

	fmt.Println("Starting smoke test against", baseURL)

	fmt.Println("1. Listing media...")
	var media struct {
		Media []string `json:"media"`
	}
	if err := sendRequest(baseURL, http.MethodGet, "/media", nil, &media); err != nil {
		fail("list media", err)
	}
	fmt.Printf("PASSED: %d media\n", len(media.Media))

	fmt.Printf("2. Starting run with threshold %.2f...\n", threshold)
	var started struct {
		ID string `json:"id"`
	}
	if err := sendRequest(baseURL, http.MethodPost, "/runs", map[string]interface{}{"threshold": threshold}, &started); err != nil {
		fail("start run", err)
	}
	fmt.Println("PASSED: run", started.ID)

	fmt.Println("3. Polling run...")
	deadline := time.Now().Add(pollTimeout)
	var snap runSnapshot
	for {
		if err := sendRequest(baseURL, http.MethodGet, "/runs/"+started.ID, nil, &snap); err != nil {
			fail("get run", err)
		}
		fmt.Printf("   state=%s progress=%.0f%%\n", snap.State, snap.Progress*100)
		if snap.State != "running" {
			break
		}
		if time.Now().After(deadline) {
			fail("poll run", fmt.Errorf("still running after %s", pollTimeout))
		}
		time.Sleep(pollInterval)
	}

	if snap.State != "completed" {
		fail("run", fmt.Errorf("ended %s: %s", snap.State, snap.Error))
	}
	fmt.Printf("PASSED: %d clusters over %d articles\n", len(snap.Clusters), snap.Articles)
	for i, c := range snap.Clusters {
		fmt.Printf("   #%d %v\n", i+1, c.IDs)
		for _, title := range c.Titles {
			fmt.Printf("      %s\n", title)
		}
	}
}

func fail(step string, err error) {
	fmt.Printf("FAILED: %s: %v\n", step, err)
	os.Exit(1)
}

func sendRequest(baseURL, method, endpoint string, payload, out interface{}) error {
	var body io.Reader
	if payload != nil {
		jsonBytes, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewBuffer(jsonBytes)
	}

	req, err := http.NewRequest(method, baseURL+endpoint, body)
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("error sending request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("status %d: %s", resp.StatusCode, respBody)
	}
	if out != nil {
		return json.Unmarshal(respBody, out)
	}
	return nil
}
