package main

import (
	"fmt"

	"github.com/ayusman/handservo/internal/transport"
)

type PortsCommand struct{}

func (c *PortsCommand) Execute(args []string) error {
	ports, err := transport.ListPorts()
	if err != nil {
		return fmt.Errorf("failed to list ports: %w", err)
	}

	if len(ports) == 0 {
		fmt.Println("No serial ports found")
		return nil
	}
	for _, p := range ports {
		fmt.Println(p)
	}
	return nil
}
