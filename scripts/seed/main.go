package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

// Seeds a running API instance with a small demo dataset (settings, rooms,
// teachers, courses) and optionally triggers a generation run for one class.
// Useful for local smoke testing against a fresh database.

type client struct {
	base  string
	token string
	http  *http.Client
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func main() {
	var (
		base     string
		email    string
		password string
		batch    string
		section  string
		generate bool
		timeout  time.Duration
	)

	flag.StringVar(&base, "base", "http://localhost:8080/api/v1", "API base URL including prefix")
	flag.StringVar(&email, "email", "admin@example.com", "Admin login email")
	flag.StringVar(&password, "password", "admin123", "Admin login password")
	flag.StringVar(&batch, "batch", "2026", "Batch to seed courses for")
	flag.StringVar(&section, "section", "A", "Section to seed courses for")
	flag.BoolVar(&generate, "generate", true, "Trigger a generation run after seeding")
	flag.DurationVar(&timeout, "timeout", 10*time.Second, "HTTP client timeout")
	flag.Parse()

	c := &client{base: strings.TrimRight(base, "/"), http: &http.Client{Timeout: timeout}}

	if err := c.login(email, password); err != nil {
		log.Fatalf("login failed: %v", err)
	}

	if err := c.put("/settings", map[string]interface{}{
		"working_days": []int{1, 2, 3, 4, 5},
		"day_config":   defaultDayConfig(),
	}, nil); err != nil {
		log.Fatalf("seed settings: %v", err)
	}
	fmt.Println("settings configured")

	for _, room := range []map[string]interface{}{
		{"name": "Room 101", "capacity": 40, "type": "LECTURE"},
		{"name": "Room 102", "capacity": 40, "type": "LECTURE"},
		{"name": "Physics Lab", "capacity": 30, "type": "LAB"},
	} {
		if err := c.post("/rooms", room, nil); err != nil {
			log.Fatalf("seed room %v: %v", room["name"], err)
		}
	}
	fmt.Println("rooms created")

	teacherIDs := make(map[string]string)
	for _, teacher := range []map[string]interface{}{
		{"email": "jane.doe@example.com", "full_name": "Jane Doe", "skills": []string{"MATH101", "MATH201"}},
		{"email": "john.smith@example.com", "full_name": "John Smith", "skills": []string{"PHY101"}, "max_load_per_day": 5},
	} {
		var created struct {
			ID string `json:"id"`
		}
		if err := c.post("/teachers", teacher, &created); err != nil {
			log.Fatalf("seed teacher %v: %v", teacher["email"], err)
		}
		teacherIDs[teacher["email"].(string)] = created.ID
	}
	fmt.Println("teachers created")

	phyTeacher := teacherIDs["john.smith@example.com"]
	for _, course := range []map[string]interface{}{
		{"code": "MATH101", "name": "Mathematics I", "type": "LECTURE", "batch": batch, "section": section, "hours_per_week": 4},
		{"code": "PHY101", "name": "Physics I", "type": "LECTURE", "batch": batch, "section": section, "hours_per_week": 3, "teacher_id": phyTeacher},
		{"code": "PHY101L", "name": "Physics Lab", "type": "LAB", "batch": batch, "section": section, "hours_per_week": 4},
	} {
		if err := c.post("/courses", course, nil); err != nil {
			log.Fatalf("seed course %v: %v", course["code"], err)
		}
	}
	fmt.Println("courses created")

	if generate {
		var result struct {
			Placed   int `json:"placed"`
			Required int `json:"required"`
		}
		if err := c.post("/timetables/generate", map[string]string{"batch": batch, "section": section}, &result); err != nil {
			log.Fatalf("generate timetable: %v", err)
		}
		fmt.Printf("generated timetable for %s/%s: placed %d of %d slots\n", batch, section, result.Placed, result.Required)
	}
}

func defaultDayConfig() []map[string]interface{} {
	days := make([]map[string]interface{}, 0, 5)
	for day := 1; day <= 5; day++ {
		days = append(days, map[string]interface{}{
			"day":            day,
			"start":          "08:30",
			"end":            "16:00",
			"period_minutes": 50,
			"periods":        8,
			"tea_break":      map[string]interface{}{"start_after_period": 2, "minutes": 20},
			"lunch_break":    map[string]interface{}{"start_period": 5, "length": 1},
		})
	}
	return days
}

func (c *client) login(email, password string) error {
	var res struct {
		AccessToken string `json:"access_token"`
	}
	if err := c.do(http.MethodPost, "/auth/login", map[string]string{"email": email, "password": password}, &res); err != nil {
		return err
	}
	if res.AccessToken == "" {
		return fmt.Errorf("login returned no access token")
	}
	c.token = res.AccessToken
	return nil
}

func (c *client) post(path string, payload, out interface{}) error {
	return c.do(http.MethodPost, path, payload, out)
}

func (c *client) put(path string, payload, out interface{}) error {
	return c.do(http.MethodPut, path, payload, out)
}

func (c *client) do(method, path string, payload, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequest(method, c.base+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close() //nolint:errcheck

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("unexpected response %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if resp.StatusCode >= 400 {
		if env.Error != nil {
			return fmt.Errorf("%s (%s)", env.Error.Message, env.Error.Code)
		}
		return fmt.Errorf("request failed with status %d", resp.StatusCode)
	}
	if out != nil && len(env.Data) > 0 {
		return json.Unmarshal(env.Data, out)
	}
	return nil
}
