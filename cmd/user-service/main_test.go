package main

import "testing"

func TestListenAddr(t *testing.T) {
	cases := map[string]string{
		"localhost:50051":   ":50051",
		"user-service:6000": ":6000",
		"":                  ":50051",
		"no-port":           ":50051",
	}
	for in, want := range cases {
		if got := listenAddr(in); got != want {
			t.Fatalf("listenAddr(%q)=%q, expected %q", in, got, want)
		}
	}
}
