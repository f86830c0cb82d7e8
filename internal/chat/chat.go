// Package chat は会話UIの「weather in X」インテント抽出と返信文の整形を提供する。
package chat

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/hitoshi/weatherdesk/internal/weather"
)

// HelpReply はインテントに一致しないメッセージへの返信。
const HelpReply = `Ask me about the weather, for example "What's the weather in London?"`

var cityPattern = regexp.MustCompile(`(?i)weather in ([a-zA-Z\s]+)`)

// ExtractCity はメッセージから「weather in <都市名>」の都市名を取り出す。
// 都市名は英字と空白のみで、前後の空白は取り除く。一致しない場合はfalseを返す。
func ExtractCity(message string) (string, bool) {
	m := cityPattern.FindStringSubmatch(message)
	if m == nil {
		return "", false
	}
	city := strings.TrimSpace(m[1])
	if city == "" {
		return "", false
	}
	return city, true
}

// FormatReply は天気情報を会話用の複数行テキストに整形する。
func FormatReply(w *weather.NormalizedWeather) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Current weather in %s, %s:\n", w.City, w.Country)
	fmt.Fprintf(&b, "• Condition: %s\n", w.Condition)
	fmt.Fprintf(&b, "• Temperature: %s°C (Feels like %s°C)\n", formatNumber(w.Temperature), formatNumber(w.FeelsLike))
	fmt.Fprintf(&b, "• Humidity: %s%%\n", formatNumber(w.Humidity))
	fmt.Fprintf(&b, "• Wind: %s km/h %s", formatNumber(w.WindSpeed), w.WindDirection)
	return b.String()
}

// formatNumber は整数値なら小数点なし、それ以外は必要な桁だけで表示する。
func formatNumber(v float64) string {
	return fmt.Sprintf("%g", v)
}
