package main

import "github.com/mlashkov/wavechat/internal/server"

func main() {
	server.NewServer().Run()
}
