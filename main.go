package main

import (
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/examshield/proctor-api/api/handlers"
	"github.com/examshield/proctor-api/config"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using process environment")
	}

	a := handlers.App{}
	a.Config = *config.New()

	if err := a.Initialize(); err != nil {
		zap.S().With(err).Fatal("failed to initialize proctor-api")
	}

	port := os.Getenv("PORT")
	baseURL := os.Getenv("BASE_URL")
	zap.S().Infow("proctor-api is up and running",
		"port", port,
		"url", baseURL,
	)
	log.Fatal(http.ListenAndServe(fmt.Sprintf(":%v", port), a.Router))
}
