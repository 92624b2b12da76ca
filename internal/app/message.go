package app

import (
	"fmt"
	"html"
	"strings"
	"time"

	"airdc_upload_monitor/internal/domain/transfer"
)

const (
	unknownValue    = "Desconocido"
	timestampLayout = "02/01/2006 15:04:05"
)

// FormatUploadMessage renders the HTML notification for a newly detected upload.
// detailed adds size and progress lines.
func FormatUploadMessage(t transfer.Transfer, at time.Time, detailed bool) string {
	nick, hub := unknownValue, unknownValue
	if t.User != nil {
		nick = orUnknown(t.User.Nicks)
		hub = orUnknown(t.User.HubNames)
	}

	speed := unknownValue
	if t.Speed > 0 {
		speed = fmt.Sprintf("%.2f MB/s", float64(t.Speed)/1024/1024)
	}

	var b strings.Builder
	b.WriteString("🔼 <b>AirDC - Nueva subida detectada</b>\n\n")
	fmt.Fprintf(&b, "📅 Fecha y hora: %s\n", at.Format(timestampLayout))
	fmt.Fprintf(&b, "📁 Archivo: %s\n", html.EscapeString(t.DisplayName()))
	fmt.Fprintf(&b, "👤 Usuario: %s\n", html.EscapeString(nick))
	fmt.Fprintf(&b, "🌐 Hub: %s\n", html.EscapeString(hub))
	if detailed {
		size := unknownValue
		if t.Size >= 0 {
			size = FormatSize(t.Size)
		}
		fmt.Fprintf(&b, "📊 Tamaño: %s\n", size)
	}
	fmt.Fprintf(&b, "⚡ Velocidad: %s\n", speed)
	if detailed {
		fmt.Fprintf(&b, "📈 Progreso: %.1f%%\n", t.Progress())
	}
	fmt.Fprintf(&b, "📋 Estado: %s", html.EscapeString(orUnknown(t.StatusText())))
	return b.String()
}

var sizeUnits = []string{"B", "KB", "MB", "GB", "TB"}

// FormatSize renders n bytes with two decimals in 1024 steps, e.g. "2.00 MB".
func FormatSize(n int64) string {
	size := float64(n)
	unit := 0
	for size >= 1024 && unit < len(sizeUnits)-1 {
		size /= 1024
		unit++
	}
	return fmt.Sprintf("%.2f %s", size, sizeUnits[unit])
}

// FormatTestMessage is sent by the test-notification command.
func FormatTestMessage(at time.Time) string {
	return fmt.Sprintf("🧪 <b>AirDC - Notificación de prueba</b>\n\n📅 Fecha y hora: %s\nEl monitor de subidas está funcionando.",
		at.Format(timestampLayout))
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return unknownValue
	}
	return s
}
