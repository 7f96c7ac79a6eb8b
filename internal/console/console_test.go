package console

import (
	"reflect"
	"testing"
)

func TestParsePlayers(t *testing.T) {
	tests := []struct {
		name string
		resp string
		want []string
	}{
		{
			name: "two players",
			resp: "Players connected (2): \n-alice\n-bob\n",
			want: []string{"alice", "bob"},
		},
		{
			name: "empty server",
			resp: "Players connected (0): \n",
			want: nil,
		},
		{
			name: "name with spaces",
			resp: "Players connected (1): \n-Old Greg\n",
			want: []string{"Old Greg"},
		},
		{
			name: "blank response",
			resp: "",
			want: nil,
		},
		{
			name: "windows line endings",
			resp: "Players connected (1): \r\n-alice\r\n",
			want: []string{"alice"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parsePlayers(tt.resp)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFirstWord(t *testing.T) {
	if got := firstWord("servermsg \"hello\""); got != "servermsg" {
		t.Fatalf("got %q", got)
	}
	if got := firstWord("players"); got != "players" {
		t.Fatalf("got %q", got)
	}
}
