/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package main

import (
	"github.com/ssargent/folio/cmd/folio/cmd"
	"github.com/ssargent/folio/pkg/di"
)

func main() {
	// Initialize dependency injection container
	container := di.NewContainer()

	cmd.Execute(container)
}
