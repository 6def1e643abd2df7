// Command seed loads a small demo timetable into a running EduSchedule
// instance over its HTTP API. It exercises the same validation path as real
// clients, so a conflicting fixture fails loudly instead of sneaking into the
// database.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

type resource struct {
	path string
	body map[string]interface{}
}

func main() {
	var (
		base    string
		token   string
		timeout time.Duration
	)

	flag.StringVar(&base, "base", "http://localhost:8080/api/v1", "API base URL")
	flag.StringVar(&token, "token", "", "staff bearer token")
	flag.DurationVar(&timeout, "timeout", 5*time.Second, "HTTP client timeout")
	flag.Parse()

	if token == "" {
		log.Fatal("a staff token is required, pass -token")
	}

	fixtures := []resource{
		{"/classrooms", map[string]interface{}{"name": "Room 101", "building": "Main", "capacity": 40}},
		{"/classrooms", map[string]interface{}{"name": "Physics Lab", "building": "Science", "capacity": 24}},
		{"/courses", map[string]interface{}{"name": "Calculus I", "semester": "2026-spring"}},
		{"/courses", map[string]interface{}{"name": "Physics II", "semester": "2026-spring"}},
		{"/teachers", map[string]interface{}{"name": "A. Vasileiou", "email": "avasileiou@example.edu"}},
	}

	client := &http.Client{Timeout: timeout}
	created := make(map[string][]string)

	for _, fx := range fixtures {
		id, err := post(client, base+fx.path, token, fx.body)
		if err != nil {
			log.Fatalf("seed %s: %v", fx.path, err)
		}
		created[fx.path] = append(created[fx.path], id)
		log.Printf("created %s %s", fx.path, id)
	}

	events := []map[string]interface{}{
		{
			"name":            "Calculus I Lecture",
			"classroom_id":    created["/classrooms"][0],
			"course_id":       created["/courses"][0],
			"teacher_id":      created["/teachers"][0],
			"start_time":      "10:00:00",
			"end_time":        "11:00:00",
			"start_date":      "2026-09-07",
			"end_date":        "2026-12-18",
			"repeat_interval": "daily",
		},
		{
			"name":            "Physics II Lab",
			"classroom_id":    created["/classrooms"][1],
			"course_id":       created["/courses"][1],
			"start_time":      "12:00:00",
			"end_time":        "14:00:00",
			"start_date":      "2026-09-07",
			"end_date":        "2026-12-18",
			"repeat_interval": "weekly",
		},
	}

	for _, ev := range events {
		id, err := post(client, base+"/events", token, ev)
		if err != nil {
			log.Fatalf("seed event %q: %v", ev["name"], err)
		}
		log.Printf("created /events %s", id)
	}

	log.Print("seed complete")
}

func post(client *http.Client, url, token string, body map[string]interface{}) (string, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	res, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return "", err
	}
	if res.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("unexpected status %d: %s", res.StatusCode, raw)
	}

	var envelope struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return "", err
	}
	return envelope.Data.ID, nil
}
