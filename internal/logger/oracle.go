package logger

import (
	"io"
	"log"
	"strings"
	"sync"
)

// Oracle traffic is dumped to a separate writer so the main log stays
// readable: the rendered market context alone can run to hundreds of lines.

var (
	oracleMu  sync.Mutex
	oracleLog *log.Logger
)

func SetOracleWriter(w io.Writer) {
	oracleMu.Lock()
	defer oracleMu.Unlock()
	if w == nil {
		oracleLog = nil
		return
	}
	oracleLog = log.New(w, "", log.LstdFlags)
}

type oracleSection struct {
	Title string
	Body  string
}

func logOracle(kind string, sections []oracleSection) {
	oracleMu.Lock()
	l := oracleLog
	oracleMu.Unlock()
	if l == nil {
		return
	}
	var b strings.Builder
	b.WriteString("[ORACLE][")
	b.WriteString(kind)
	b.WriteString("]\n")
	for _, sec := range sections {
		title := strings.TrimSpace(sec.Title)
		if title == "" {
			title = "CONTENT"
		}
		b.WriteString("--- ")
		b.WriteString(title)
		b.WriteString(" ---\n")
		b.WriteString(sec.Body)
		if !strings.HasSuffix(sec.Body, "\n") {
			b.WriteString("\n")
		}
	}
	b.WriteString("=====\n")
	l.Print(b.String())
}

func LogOracleRequest(systemPrompt, userPrompt string) {
	logOracle("request", []oracleSection{
		{Title: "SYSTEM", Body: systemPrompt},
		{Title: "USER", Body: userPrompt},
	})
}

func LogOracleResponse(raw string) {
	logOracle("response", []oracleSection{{Title: "RAW", Body: raw}})
}
