// code.go — генератор коротких кодов выдачи.
package service

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// CodeGenerator — источник кодов выдачи.
// Генератор чистый: за уникальность отвечает вызывающий код,
// проверяя конфликт в реестре и повторяя генерацию.
type CodeGenerator interface {
	Generate() (string, error)
}

// RandomCodeGenerator — генератор случайных hex-кодов фиксированной длины
// на crypto/rand. Код из n байт даёт hex-строку длиной 2n символов;
// при n=3 пространство составляет ~16.7M значений.
type RandomCodeGenerator struct {
	// length — длина кода в байтах
	length int
}

// NewRandomCodeGenerator создаёт генератор кодов длиной length байт.
func NewRandomCodeGenerator(length int) *RandomCodeGenerator {
	return &RandomCodeGenerator{length: length}
}

// Generate возвращает новый случайный код.
func (g *RandomCodeGenerator) Generate() (string, error) {
	buf := make([]byte, g.length)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("ошибка чтения crypto/rand: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
