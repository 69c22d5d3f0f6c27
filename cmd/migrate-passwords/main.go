// Migration script to hash existing passwords
// cmd/migrate-passwords/main.go
package main

import (
	"log"
	"strings"

	"campus-hub-api/config"
	"campus-hub-api/models"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	// Load .env
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	// Initialize database
	config.InitDB()

	var users []models.User
	if err := config.DB.Find(&users).Error; err != nil {
		log.Fatal("Failed to fetch users:", err)
	}

	for _, user := range users {
		// Skip if already hashed (bcrypt hashes start with $2)
		if strings.HasPrefix(user.Password, "$2") {
			log.Printf("User %s already has hashed password, skipping\n", user.Email)
			continue
		}

		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(user.Password), bcrypt.DefaultCost)
		if err != nil {
			log.Printf("Failed to hash password for user %s: %v\n", user.Email, err)
			continue
		}

		if err := config.DB.Model(&user).Update("password", string(hashedPassword)).Error; err != nil {
			log.Printf("Failed to update password for user %s: %v\n", user.Email, err)
			continue
		}

		log.Printf("Successfully updated password for user %s\n", user.Email)
	}

	log.Println("Password migration completed!")
}
