package main

// @title           Sercha Fact Check API
// @version         1.0
// @description     Checks messages against a corpus of indexed PDF documents.

// @contact.name   Sercha OSS
// @contact.url    https://github.com/custodia-labs/sercha-factcheck/issues

// @license.name  Apache 2.0
// @license.url   http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:8080
// @BasePath  /api/v1
// @schemes   http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT Bearer token. Format: "Bearer {token}"

import (
	"os"

	_ "github.com/custodia-labs/sercha-factcheck/docs"
)

var version = "dev"

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
