// Command edufund runs the EduFund wallet adapter service.
//
// @title                       EduFund API
// @version                     1.0
// @description                 Cardano wallet adapter and donation platform for student research projects
// @host                        localhost:8080
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
