package adapter

import (
	"fmt"
	"path/filepath"
	"strings"

	"tradeaudit/internal/models"
)

// parseSide normalizes a buy/sell column value.
func parseSide(s string) (models.Side, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "BUY", "B":
		return models.SideBuy, nil
	case "SELL", "S":
		return models.SideSell, nil
	}
	return "", fmt.Errorf("unknown side %q", s)
}

// mapExchange normalizes an exchange column value, defaulting to NSE.
func mapExchange(s string) models.Exchange {
	up := strings.ToUpper(strings.TrimSpace(s))
	switch {
	case strings.HasPrefix(up, "NFO"):
		return models.NFO
	case strings.HasPrefix(up, "BSE"):
		return models.BSE
	default:
		return models.NSE
	}
}

// normalizeSymbol uppercases and trims an instrument name.
func normalizeSymbol(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// synthID builds a fill ID for exports without their own trade IDs.
func synthID(broker models.Broker, src string, row int) string {
	base := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))
	return fmt.Sprintf("%s-%s-%d", broker, base, row)
}

// derivativeName reports whether a security name refers to a futures or
// options contract.
func derivativeName(name string) bool {
	up := strings.ToUpper(name)
	return strings.Contains(up, "FUT") || strings.Contains(up, "OPT")
}
