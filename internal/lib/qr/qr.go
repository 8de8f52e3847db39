// Package qr извлекает идентификатор подписки из содержимого QR-кода.
//
// Сканеры салонов присылают токен в одном из трёх видов: строгий JSON-объект
// с полем subscriptionId, слабо структурированная строка "ключ: значение"
// с тем же полем, либо непрозрачная строка — сам qr_code подписки.
// Стратегии пробуются по порядку, разбор никогда не возвращает ошибку:
// если ни одна стратегия не дала идентификатор, токен целиком трактуется
// как qr_code и разрешается поиском в хранилище.
package qr

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
)

// loosePattern находит "subscriptionId: 42" в произвольной строке,
// допуская кавычки вокруг значения и отсутствие пробела после двоеточия.
var loosePattern = regexp.MustCompile(`(?i)"?subscriptionId"?\s*:\s*"?(\d+)"?`)

// ParseSubscriptionID пытается извлечь идентификатор подписки из токена.
// Возвращает (id, true) если сработала JSON- или текстовая стратегия,
// иначе (0, false) — тогда токен нужно сопоставлять с qr_code как есть.
func ParseSubscriptionID(token string) (int, bool) {
	if id, ok := parseJSON(token); ok {
		return id, true
	}
	if id, ok := parseLoose(token); ok {
		return id, true
	}
	return 0, false
}

// parseJSON разбирает токен как строгий JSON-объект с полем subscriptionId.
// Поле может быть числом или числовой строкой.
func parseJSON(token string) (int, bool) {
	trimmed := strings.TrimSpace(token)
	if !strings.HasPrefix(trimmed, "{") {
		return 0, false
	}

	var payload map[string]json.RawMessage
	if err := json.Unmarshal([]byte(trimmed), &payload); err != nil {
		return 0, false
	}
	raw, ok := payload["subscriptionId"]
	if !ok {
		return 0, false
	}

	var asNumber json.Number
	if err := json.Unmarshal(raw, &asNumber); err == nil {
		if id, err := strconv.Atoi(asNumber.String()); err == nil && id > 0 {
			return id, true
		}
		return 0, false
	}

	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		if id, err := strconv.Atoi(strings.TrimSpace(asString)); err == nil && id > 0 {
			return id, true
		}
	}
	return 0, false
}

// parseLoose ищет пару subscriptionId:<число> в слабо структурированной строке.
func parseLoose(token string) (int, bool) {
	match := loosePattern.FindStringSubmatch(token)
	if match == nil {
		return 0, false
	}
	id, err := strconv.Atoi(match[1])
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
