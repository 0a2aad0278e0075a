package service

import (
	"testing"
)

func TestGenerate_Length(t *testing.T) {
	// Код из n байт — hex-строка длиной 2n символов
	tests := []struct {
		lengthBytes int
		wantChars   int
	}{
		{1, 2},
		{3, 6},
		{4, 8},
		{16, 32},
	}

	for _, tt := range tests {
		gen := NewRandomCodeGenerator(tt.lengthBytes)
		code, err := gen.Generate()
		if err != nil {
			t.Fatalf("неожиданная ошибка Generate: %v", err)
		}
		if len(code) != tt.wantChars {
			t.Errorf("длина кода при %d байтах: хотели %d, получили %d (%q)",
				tt.lengthBytes, tt.wantChars, len(code), code)
		}
	}
}

func TestGenerate_HexAlphabet(t *testing.T) {
	gen := NewRandomCodeGenerator(3)

	for i := 0; i < 50; i++ {
		code, err := gen.Generate()
		if err != nil {
			t.Fatalf("неожиданная ошибка Generate: %v", err)
		}
		for _, c := range code {
			if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')) {
				t.Fatalf("код %q содержит не-hex символ %q", code, c)
			}
		}
	}
}

func TestGenerate_Distinct(t *testing.T) {
	gen := NewRandomCodeGenerator(3)

	// При пространстве ~16.7M значений 100 подряд одинаковых кодов
	// означали бы сломанный генератор
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		code, err := gen.Generate()
		if err != nil {
			t.Fatalf("неожиданная ошибка Generate: %v", err)
		}
		seen[code] = true
	}
	if len(seen) < 2 {
		t.Error("генератор вернул одно и то же значение 100 раз подряд")
	}
}
