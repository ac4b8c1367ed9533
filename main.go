package main

import (
	cmd "github.com/comfygate/comfy-gateway/cmd/comfygate"
)

func main() {
	cmd.Execute()
}
