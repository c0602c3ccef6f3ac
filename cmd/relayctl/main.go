// relayctl is a small operator console for a running relay. It talks
// to the REST surface only; moderation actions go through an elevated
// websocket session, not through this tool.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gookit/color"
	"github.com/kelseyhightower/envconfig"
	"github.com/olekukonko/tablewriter"
)

type Config struct {
	RelayAddr string `envconfig:"RELAY_ADDR" default:"http://localhost:8080"`
	// RELAY_TOKEN holds an operator JWT for admin-only routes
	Token string `envconfig:"RELAY_TOKEN"`
	// RELAYCTL_COLOURS enables colorized output for better readability
	Colours bool `envconfig:"RELAYCTL_COLOURS" default:"true"`
}

func main() {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatal("Error while reading environment: ", err)
	}

	flag.Usage = usage
	flag.Parse()
	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}

	client := &client{cfg: cfg, http: &http.Client{Timeout: 10 * time.Second}}

	var err error
	switch args[0] {
	case "channels":
		err = client.channels()
	case "history":
		err = withArg(args, 1, client.history)
	case "archive":
		cursor := ""
		if len(args) > 2 {
			cursor = args[2]
		}
		err = withArg(args, 1, func(channel string) error {
			return client.archive(channel, cursor)
		})
	case "search":
		if len(args) < 3 {
			usage()
			os.Exit(2)
		}
		err = client.search(args[1], args[2])
	case "health":
		err = client.health()
	case "create-channel":
		err = withArg(args, 1, client.createChannel)
	default:
		usage()
		os.Exit(2)
	}

	if err != nil {
		log.Fatal(err)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `Usage: relayctl <command> [args]

Commands:
  channels                  list channels
  history <channel>         show the live history ring of a channel
  archive <channel> [cur]   page through the archive, newest first
  search <channel> <query>  full-text search over archived messages
  health                    relay process health
  create-channel <name>     create a channel (requires RELAY_TOKEN)`)
}

func withArg(args []string, index int, fn func(string) error) error {
	if len(args) <= index {
		usage()
		os.Exit(2)
	}
	return fn(args[index])
}

type client struct {
	cfg  Config
	http *http.Client
}

func (c *client) get(path string, out any) error {
	resp, err := c.http.Get(c.cfg.RelayAddr + path)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("relay answered %s: %s", resp.Status, bytes.TrimSpace(body))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *client) header(text string) {
	if c.cfg.Colours {
		text = color.New(color.BgBlack, color.FgGreen).Render(text)
	}
	fmt.Println(text)
}

func newTable() *tablewriter.Table {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")
	return table
}

func (c *client) channels() error {
	var payload struct {
		Channels []struct {
			Name     string `json:"name"`
			Messages int    `json:"messages"`
		} `json:"channels"`
	}
	if err := c.get("/api/channels", &payload); err != nil {
		return err
	}

	c.header(fmt.Sprintf(" %d channel(s) ", len(payload.Channels)))
	table := newTable()
	table.SetHeader([]string{"Name", "Live Messages"})
	for _, channel := range payload.Channels {
		table.Append([]string{channel.Name, fmt.Sprintf("%d", channel.Messages)})
	}
	table.Render()
	return nil
}

type wireMessage struct {
	Author    string    `json:"author"`
	Text      string    `json:"text"`
	Content   string    `json:"content"`
	Lang      string    `json:"lang"`
	CreatedAt time.Time `json:"createdAt"`
	At        time.Time `json:"at"`
}

func (m wireMessage) body() string {
	if m.Text != "" {
		return m.Text
	}
	return m.Content
}

func (m wireMessage) when() time.Time {
	if !m.CreatedAt.IsZero() {
		return m.CreatedAt
	}
	return m.At
}

func renderMessages(table *tablewriter.Table, messages []wireMessage) {
	table.SetHeader([]string{"Time", "Author", "Lang", "Message"})
	for _, message := range messages {
		table.Append([]string{
			message.when().Format("15:04:05"),
			message.Author,
			message.Lang,
			message.body(),
		})
	}
	table.Render()
}

func (c *client) history(channel string) error {
	var payload struct {
		Events []wireMessage `json:"events"`
	}
	if err := c.get("/api/channels/"+channel+"/history", &payload); err != nil {
		return err
	}

	c.header(fmt.Sprintf(" %s: %d live message(s) ", channel, len(payload.Events)))
	renderMessages(newTable(), payload.Events)
	return nil
}

func (c *client) archive(channel, cursor string) error {
	path := "/api/channels/" + channel + "/messages"
	if cursor != "" {
		path += "?cursor=" + cursor
	}
	var payload struct {
		Messages []wireMessage `json:"messages"`
		Cursor   string        `json:"cursor"`
	}
	if err := c.get(path, &payload); err != nil {
		return err
	}

	c.header(fmt.Sprintf(" %s: %d archived message(s) ", channel, len(payload.Messages)))
	renderMessages(newTable(), payload.Messages)
	if payload.Cursor != "" {
		fmt.Printf("\nnext page: relayctl archive %s %s\n", channel, payload.Cursor)
	}
	return nil
}

func (c *client) search(channel, query string) error {
	var payload struct {
		Total uint64 `json:"total"`
		Hits  []struct {
			Author  string    `json:"author"`
			Content string    `json:"content"`
			At      time.Time `json:"at"`
			Score   float64   `json:"score"`
		} `json:"hits"`
	}
	path := fmt.Sprintf("/api/channels/%s/search?q=%s", channel, query)
	if err := c.get(path, &payload); err != nil {
		return err
	}

	c.header(fmt.Sprintf(" %q in %s: %d hit(s) ", query, channel, payload.Total))
	table := newTable()
	table.SetHeader([]string{"Time", "Author", "Score", "Message"})
	for _, hit := range payload.Hits {
		table.Append([]string{
			hit.At.Format("15:04:05"),
			hit.Author,
			fmt.Sprintf("%.3f", hit.Score),
			hit.Content,
		})
	}
	table.Render()
	return nil
}

func (c *client) health() error {
	var snapshot struct {
		Status        string  `json:"status"`
		UptimeSeconds int64   `json:"uptimeSeconds"`
		Sessions      int     `json:"sessions"`
		Channels      int     `json:"channels"`
		CPUPercent    float64 `json:"cpuPercent"`
		RAMPercent    float32 `json:"ramPercent"`
	}
	if err := c.get("/api/health", &snapshot); err != nil {
		return err
	}

	c.header(fmt.Sprintf(" relay is %s ", snapshot.Status))
	table := newTable()
	table.SetHeader([]string{"Uptime", "Sessions", "Channels", "CPU %", "RAM %"})
	table.Append([]string{
		(time.Duration(snapshot.UptimeSeconds) * time.Second).String(),
		fmt.Sprintf("%d", snapshot.Sessions),
		fmt.Sprintf("%d", snapshot.Channels),
		fmt.Sprintf("%.1f", snapshot.CPUPercent),
		fmt.Sprintf("%.1f", snapshot.RAMPercent),
	})
	table.Render()
	return nil
}

func (c *client) createChannel(name string) error {
	if c.cfg.Token == "" {
		return fmt.Errorf("create-channel needs an operator token in RELAY_TOKEN")
	}

	body, err := json.Marshal(map[string]string{"name": name})
	if err != nil {
		return err
	}

	request, err := http.NewRequest(http.MethodPost, c.cfg.RelayAddr+"/api/channels", bytes.NewReader(body))
	if err != nil {
		return err
	}
	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("Authorization", "Bearer "+c.cfg.Token)

	resp, err := c.http.Do(request)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		answer, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("relay answered %s: %s", resp.Status, bytes.TrimSpace(answer))
	}

	c.header(fmt.Sprintf(" channel %s created ", name))
	return nil
}