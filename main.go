// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
)

func main() {
	fmt.Println("🎨 go-colorsync - Offline-First Color Cards")
	fmt.Println("===========================================")
	fmt.Println()
	fmt.Println("go-colorsync keeps color cards in local storage, queues every change while")
	fmt.Println("offline, and replays the queue against a remote document store once the")
	fmt.Println("network comes back.")
	fmt.Println()

	fmt.Println("📚 Available Examples:")
	fmt.Println()
	fmt.Println("1. 🌐 Document Server (examples/colorsync_server/)")
	fmt.Println("   REST document store backed by PostgreSQL or memory")
	fmt.Println("   Features: JWT auth, batch upserts, idempotent deletes, TOML config")
	fmt.Println("   Run: go run ./examples/colorsync_server --config server.toml")
	fmt.Println()

	fmt.Println("2. 📱 Colors App (examples/colors_app/)")
	fmt.Println("   Interactive client with SQLite storage and a pending sync queue")
	fmt.Println("   Features: manual, probe or file-watched connectivity, retry with backoff")
	fmt.Println("   Run: go run ./examples/colors_app run")
	fmt.Println()
}
