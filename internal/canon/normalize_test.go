package canon

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"  MOTÓR ", "Motor"},
		{"", ""},
		{"   ", ""},
		{"inspección", "Inspeccion"},
		{"CIGÜEÑAL", "Ciguenal"},
		{"Tren de Fuerza", "Tren de fuerza"},
		{"ñandú", "Nandu"},
		{"\tfiltro de aire\n", "Filtro de aire"},
		{"ﬁltro", "Filtro"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := Normalize(tt.in); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	for _, s := range []string{"  MOTÓR ", "Relleno de ACEITE", "ÁÉÍÓÚ", "x", "Ñ"} {
		once := Normalize(s)
		if twice := Normalize(once); twice != once {
			t.Errorf("Normalize(Normalize(%q)) = %q, want %q", s, twice, once)
		}
	}
}
