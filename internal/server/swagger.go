package server

//go:generate swag init -g internal/server/server.go -o docs/swagger

// @title Kage API
// @version 0.1
// @description Interactive documentation for the Kage dark pattern scanner API.
// @contact.name Kage Maintainers
// @contact.url https://github.com/raysh454/kage
// @BasePath /
