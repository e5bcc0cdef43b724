// Command healthprobe is a lean fasthttp sidecar for load balancers: it
// polls the store server's /healthz and serves the cached verdict
// without touching the main server on every probe.
package main

import (
	"flag"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/valyala/fasthttp"
)

func main() {
	addr := flag.String("addr", ":8081", "listen address")
	upstream := flag.String("upstream", "http://127.0.0.1:8080/healthz", "store server health URL")
	interval := flag.Duration("interval", 2*time.Second, "poll interval")
	flag.Parse()

	var healthy atomic.Bool
	go func() {
		client := &fasthttp.Client{ReadTimeout: 3 * time.Second, WriteTimeout: 3 * time.Second}
		for {
			code, _, err := client.GetTimeout(nil, *upstream, 3*time.Second)
			healthy.Store(err == nil && code == fasthttp.StatusOK)
			time.Sleep(*interval)
		}
	}()

	h := func(ctx *fasthttp.RequestCtx) {
		switch string(ctx.Path()) {
		case "/health", "/healthz":
			ctx.Response.Header.Set("Content-Type", "application/json")
			if healthy.Load() {
				ctx.SetStatusCode(fasthttp.StatusOK)
				_, _ = ctx.WriteString(`{"status":"ok"}`)
			} else {
				ctx.SetStatusCode(fasthttp.StatusServiceUnavailable)
				_, _ = ctx.WriteString(`{"status":"unhealthy"}`)
			}
		default:
			ctx.SetStatusCode(fasthttp.StatusNotFound)
		}
	}

	srv := &fasthttp.Server{
		Handler:            h,
		Name:               "havenstore-healthprobe",
		ReadTimeout:        5 * time.Second,
		WriteTimeout:       5 * time.Second,
		MaxRequestBodySize: 1 << 20,
	}
	fmt.Printf("healthprobe listening on %s (upstream %s)\n", *addr, *upstream)
	if err := srv.ListenAndServe(*addr); err != nil {
		fmt.Printf("healthprobe exit: %v\n", err)
	}
}
