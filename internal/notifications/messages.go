package notifications

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
)

// Supported message languages; index order must match the texts maps below.
var langMatcher = language.NewMatcher([]language.Tag{
	language.Russian, // default
	language.MustParse("ky"),
	language.English,
})

const (
	langRU = iota
	langKY
	langEN
)

func langIndex(code string) int {
	if code == "" {
		return langRU
	}
	_, idx := language.MatchStrings(langMatcher, code)
	return idx
}

// MapLink builds a Google Maps link for the coordinate.
func MapLink(lat, lon float64) string {
	return fmt.Sprintf("https://www.google.com/maps/search/?api=1&query=%f,%f", lat, lon)
}

var sosHeader = [...]string{
	langRU: "🚨 ЭКСТРЕННАЯ ТРЕВОГА!\n\n%s активировал SOS!",
	langKY: "🚨 ШАШЫЛЫШ КАБАР!\n\n%s SOS белгисин берди!",
	langEN: "🚨 EMERGENCY ALERT!\n\n%s triggered SOS!",
}

var zoneEnter = [...]string{
	langRU: "📍 %s вошел в зону '%s'",
	langKY: "📍 %s '%s' аймагына кирди",
	langEN: "📍 %s entered zone '%s'",
}

var zoneExit = [...]string{
	langRU: "📍 %s вышел из зоны '%s'",
	langKY: "📍 %s '%s' аймагынан чыкты",
	langEN: "📍 %s left zone '%s'",
}

var labels = [...]struct {
	location, address, zoneType, timeAt, media, footer string
}{
	langRU: {"Местоположение", "Адрес", "Тип зоны", "Время", "Запись", "❗ Это автоматическое сообщение из приложения AlertMe"},
	langKY: {"Жайгашкан жери", "Дарек", "Аймактын түрү", "Убакыт", "Жазуу", "❗ Бул AlertMe колдонмосунан автоматтык билдирүү"},
	langEN: {"Location", "Address", "Zone type", "Time", "Recording", "❗ This is an automated message from the AlertMe app"},
}

// FormatAlertMessage renders the notification text in the alerting user's
// language, falling back to Russian for anything unrecognized.
func FormatAlertMessage(a Alert) string {
	idx := langIndex(a.Language)
	lbl := labels[idx]

	var b strings.Builder
	switch a.Kind {
	case AlertZoneEnter:
		fmt.Fprintf(&b, zoneEnter[idx], a.UserName, a.ZoneName)
	case AlertZoneExit:
		fmt.Fprintf(&b, zoneExit[idx], a.UserName, a.ZoneName)
	default:
		fmt.Fprintf(&b, sosHeader[idx], a.UserName)
	}
	b.WriteString("\n")

	if a.ZoneType != "" {
		fmt.Fprintf(&b, "\n%s: %s", lbl.zoneType, a.ZoneType)
	}
	if a.Latitude != nil && a.Longitude != nil {
		fmt.Fprintf(&b, "\n%s:\n%s", lbl.location, MapLink(*a.Latitude, *a.Longitude))
	}
	if a.Address != "" {
		fmt.Fprintf(&b, "\n%s: %s", lbl.address, a.Address)
	}
	if a.MediaURL != "" {
		fmt.Fprintf(&b, "\n%s: %s", lbl.media, a.MediaURL)
	}
	fmt.Fprintf(&b, "\n%s: %s", lbl.timeAt, a.OccurredAt.Format("15:04, 02.01.2006"))
	fmt.Fprintf(&b, "\n\n%s", lbl.footer)

	return b.String()
}

var emailSubjects = [...]struct{ sos, zone string }{
	langRU: {"🚨 SOS от %s", "📍 Геозона: %s"},
	langKY: {"🚨 %s тарабынан SOS", "📍 Геозона: %s"},
	langEN: {"🚨 SOS from %s", "📍 Geozone: %s"},
}

func EmailSubject(a Alert) string {
	idx := langIndex(a.Language)
	if a.Kind == AlertSOS {
		return fmt.Sprintf(emailSubjects[idx].sos, a.UserName)
	}
	return fmt.Sprintf(emailSubjects[idx].zone, a.UserName)
}

// EmailBody wraps the plain alert text in minimal HTML with a map button.
func EmailBody(a Alert) string {
	text := strings.ReplaceAll(FormatAlertMessage(a), "\n", "<br>")
	var button string
	if a.Latitude != nil && a.Longitude != nil {
		button = fmt.Sprintf(
			`<p><a href="%s" style="background:#d9534f;color:#fff;padding:10px 20px;border-radius:4px;text-decoration:none">%s</a></p>`,
			MapLink(*a.Latitude, *a.Longitude), labels[langIndex(a.Language)].location)
	}
	return fmt.Sprintf(`<html><body><p>%s</p>%s</body></html>`, text, button)
}
