package banner

import (
	"fmt"

	"havenstore/pkg/config"
)

const banner = `
██╗  ██╗ █████╗ ██╗   ██╗███████╗███╗   ██╗
██║  ██║██╔══██╗██║   ██║██╔════╝████╗  ██║
███████║███████║██║   ██║█████╗  ██╔██╗ ██║
██╔══██║██╔══██║╚██╗ ██╔╝██╔══╝  ██║╚██╗██║
██║  ██║██║  ██║ ╚████╔╝ ███████╗██║ ╚████║
╚═╝  ╚═╝╚═╝  ╚═╝  ╚═══╝  ╚══════╝╚═╝  ╚═══╝  store
`

// Print shows startup info on stdout. Logs carry the same data in
// structured form; this is just for humans running it by hand.
func Print(cfg *config.Config, version string) {
	fmt.Print(banner)
	fmt.Println("== Config =====================================================")
	fmt.Printf("Listen:   %s\n", cfg.Addr())
	fmt.Printf("Backend:  %s\n", cfg.Storage.Backend)
	if cfg.Storage.Backend == "pebble" {
		fmt.Printf("DB Path:  %s\n", cfg.Storage.DBPath)
	} else {
		fmt.Printf("Blob:     %s\n", cfg.Storage.BlobPath)
	}
	if version != "" {
		fmt.Printf("Version:  %s\n", version)
	}
	fmt.Println("\n== Endpoints ==================================================")
	fmt.Println("GET  /v1/rooms/{room}/messages - Full room history, sanitized for X-Username")
	fmt.Println("POST /v1/mutations             - Apply one mutation (room in the JSON body)")
	fmt.Println("GET  /healthz, GET /metrics")
	fmt.Println("\n== Examples ===================================================")
	fmt.Printf("curl -H 'X-Username: ari' 'http://localhost%s/v1/rooms/general/messages'\n", cfg.Addr())
	fmt.Printf("curl -H 'X-Username: ari' -X POST 'http://localhost%s/v1/mutations' -d '{\"room\":\"general\",\"msg\":{\"text\":\"hello\"}}'\n", cfg.Addr())
}
