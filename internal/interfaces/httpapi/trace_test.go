package httpapi

import "testing"

func TestHandlerSpanName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want bool
	}{
		{name: "handler span", in: "httpapi.Handler.GenerateCoupon", want: true},
		{name: "middleware span", in: "httpapi.RequestLogging", want: false},
		{name: "helper span", in: "httpapi.writeError", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := handlerSpanName(tt.in)
			if got != tt.want {
				t.Fatalf("handlerSpanName(%q)=%v want=%v", tt.in, got, tt.want)
			}
		})
	}
}
