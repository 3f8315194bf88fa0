// Command tlog-play replays a session recorded by tlog-rec, writing the
// recorded terminal output back to stdout in order. It is a test/demo
// tool only: nothing under internal/tlog imports this package.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"
)

// message mirrors the fields of sink.Message that replay actually
// needs. It is kept local rather than importing internal/tlog/sink so
// this tool stays a pure consumer of the on-disk wire format.
type message struct {
	Host      string `json:"host"`
	User      string `json:"user"`
	Session   string `json:"session"`
	ID        uint64 `json:"id"`
	Timestamp int64  `json:"timestamp"`
	OutputTxt string `json:"out_txt"`
}

func main() {
	var (
		path  = flag.String("in", "session.jsonl", "Recorded session file to replay (newline-delimited JSON)")
		speed = flag.Float64("speed", 1.0, "Playback speed multiplier (0 disables pacing, replays instantly)")
	)
	flag.Parse()

	if err := run(*path, *speed, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "tlog-play:", err)
		os.Exit(1)
	}
}

func run(path string, speed float64, out *os.File) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(out)
	defer w.Flush()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var prev time.Time
	for scanner.Scan() {
		var msg message
		if err := json.Unmarshal(scanner.Bytes(), &msg); err != nil {
			return fmt.Errorf("decode message: %w", err)
		}

		ts := time.Unix(msg.Timestamp, 0)
		if speed > 0 && !prev.IsZero() {
			if delay := ts.Sub(prev); delay > 0 {
				time.Sleep(time.Duration(float64(delay) / speed))
			}
		}
		prev = ts

		if _, err := w.WriteString(msg.OutputTxt); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	return nil
}
