package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/LeonidasJP/CitiesSkylines-Stats/internal/observerproto"
)

func main() {
	var (
		url        = flag.String("url", "ws://127.0.0.1:8091/v1/observer/ws", "observer ws url")
		skipHidden = flag.Bool("skip_hidden", false, "only receive visible widgets")
		category   = flag.String("category", "", "category to edit")
		enable     = flag.String("enable", "", "set category enabled: true|false")
		threshold  = flag.Int("threshold", -1, "set category threshold (0..100)")
		columns    = flag.Int("columns", 0, "set panel columns")
		lang       = flag.String("lang", "", "switch display language")
	)
	flag.Parse()

	logger, _ := zap.NewDevelopment()
	defer func() { _ = logger.Sync() }()

	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		logger.Fatal("dial", zap.Error(err))
	}
	defer conn.Close()

	sub := observerproto.SubscribeMsg{
		Type:            observerproto.TypeSubscribe,
		ProtocolVersion: observerproto.Version,
		SkipHidden:      *skipHidden,
	}
	if err := conn.WriteJSON(sub); err != nil {
		logger.Fatal("send SUBSCRIBE", zap.Error(err))
	}

	edit, err := configEdit(*category, *enable, *threshold, *columns, *lang)
	if err != nil {
		logger.Fatal("config flags", zap.Error(err))
	}
	if edit != nil {
		if err := conn.WriteJSON(edit); err != nil {
			logger.Fatal("send CONFIG", zap.Error(err))
		}
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	go func() {
		<-stop
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"))
		_ = conn.Close()
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if err := printMessage(os.Stdout, msg); err != nil {
			logger.Warn("bad message", zap.Error(err))
		}
	}
}

// configEdit builds the CONFIG message the flags ask for, or nil.
func configEdit(category, enable string, threshold, columns int, lang string) (*observerproto.ConfigMsg, error) {
	m := &observerproto.ConfigMsg{
		Type:            observerproto.TypeConfig,
		ProtocolVersion: observerproto.Version,
		Category:        category,
		Language:        lang,
	}
	touched := lang != ""
	if enable != "" || threshold >= 0 {
		if category == "" {
			return nil, fmt.Errorf("-enable and -threshold need -category")
		}
	}
	switch enable {
	case "":
	case "true", "false":
		v := enable == "true"
		m.Enabled = &v
		touched = true
	default:
		return nil, fmt.Errorf("-enable must be true or false")
	}
	if threshold >= 0 {
		m.Threshold = &threshold
		touched = true
	}
	if columns > 0 {
		m.Columns = &columns
		touched = true
	}
	if !touched {
		return nil, nil
	}
	return m, nil
}

func printMessage(w io.Writer, msg []byte) error {
	var head struct {
		Type      string `json:"type"`
		SessionID string `json:"session_id"`
	}
	if err := json.Unmarshal(msg, &head); err != nil {
		return err
	}
	switch {
	case head.Type == observerproto.TypeView:
		var v observerproto.ViewMsg
		if err := json.Unmarshal(msg, &v); err != nil {
			return err
		}
		parts := make([]string, 0, len(v.Widgets))
		for _, wd := range v.Widgets {
			if wd.Visible {
				parts = append(parts, fmt.Sprintf("%s=%s", wd.ID, wd.Text))
			}
		}
		fmt.Fprintf(w, "VIEW seq=%d shown=%v opacity=%.0f %s\n", v.Seq, v.Shown, v.Opacity, strings.Join(parts, " "))
	case head.Type == observerproto.TypeAck:
		fmt.Fprintln(w, "ACK")
	case head.Type == observerproto.TypeError:
		var r observerproto.ReplyMsg
		if err := json.Unmarshal(msg, &r); err != nil {
			return err
		}
		fmt.Fprintf(w, "ERROR %s\n", r.Message)
	case head.SessionID != "":
		var b observerproto.BootstrapResponse
		if err := json.Unmarshal(msg, &b); err != nil {
			return err
		}
		fmt.Fprintf(w, "BOOTSTRAP session=%s city=%q lang=%s categories=%d columns=%d\n",
			b.SessionID, b.CityName, b.Language, len(b.Categories), b.Panel.Columns)
	default:
		return fmt.Errorf("unknown message type %q", head.Type)
	}
	return nil
}
