package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

type block struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// booking-sim asks for availability and requests a meeting in the first block.
func main() {
	var (
		baseURL     = flag.String("base-url", getenv("BASE_URL", "http://localhost:8083"), "booking service base url")
		category    = flag.String("category", getenv("CATEGORY", "professional"), "category")
		subcategory = flag.String("subcategory", getenv("SUBCATEGORY", "networking"), "subcategory")
		start       = flag.String("start", getenv("START", ""), "first day (YYYY-MM-DD)")
		end         = flag.String("end", getenv("END", ""), "last day (YYYY-MM-DD)")
		name        = flag.String("name", getenv("NAME", "Sim Visitor"), "requester name")
		email       = flag.String("email", getenv("EMAIL", "sim@example.com"), "requester email")
		book        = flag.Bool("book", true, "request a meeting in the first available block")
	)
	flag.Parse()

	base := strings.TrimRight(*baseURL, "/")
	q := url.Values{}
	q.Set("category", *category)
	q.Set("subcategory", *subcategory)
	if *start != "" {
		q.Set("start", *start)
	}
	if *end != "" {
		q.Set("end", *end)
	}

	client := &http.Client{Timeout: 15 * time.Second}
	resp, err := client.Get(base + "/api/v1/availability?" + q.Encode())
	if err != nil {
		fatal(err.Error())
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		fatal(fmt.Sprintf("availability status=%d", resp.StatusCode))
	}
	var avail struct {
		Found  bool    `json:"found"`
		Blocks []block `json:"blocks"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&avail); err != nil {
		fatal(err.Error())
	}
	fmt.Printf("found=%v blocks=%d\n", avail.Found, len(avail.Blocks))
	for _, b := range avail.Blocks {
		fmt.Printf("  %s -> %s\n", b.Start, b.End)
	}
	if !*book || len(avail.Blocks) == 0 {
		return
	}

	payload, err := json.Marshal(map[string]string{
		"category":    *category,
		"subcategory": *subcategory,
		"start":       avail.Blocks[0].Start,
		"end":         avail.Blocks[0].End,
		"name":        *name,
		"email":       *email,
	})
	if err != nil {
		fatal(err.Error())
	}
	created, err := client.Post(base+"/api/v1/meetings", "application/json", bytes.NewReader(payload))
	if err != nil {
		fatal(err.Error())
	}
	defer created.Body.Close()
	var out map[string]any
	_ = json.NewDecoder(created.Body).Decode(&out)
	fmt.Printf("status=%d body=%v\n", created.StatusCode, out)
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func fatal(msg string) {
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(2)
}
