package tokenizer_test

import (
	"encoding/json"
	"strconv"
)

func jsonString(s string) (string, error) {
	b, err := json.Marshal(s)
	return string(b), err
}

func itoa(n int) string { return strconv.Itoa(n) }
