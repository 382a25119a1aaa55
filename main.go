package main

import (
	"context"
	"log"
	"os"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"fax-order/pkg/api"
	"fax-order/pkg/models"
	"fax-order/pkg/services/matching"
	"fax-order/pkg/services/ocr"
	"fax-order/pkg/services/render"
)

func main() {
	// Load environment variables; a missing .env is fine in production
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using process environment")
	}

	// Set up database connection
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is required")
	}
	db, err := gorm.Open(postgres.Open(dbURL), &gorm.Config{})
	if err != nil {
		log.Fatal("Failed to connect to database")
	}

	// Auto migrate the schema
	err = db.AutoMigrate(
		&models.Product{},
		&models.ProductAlias{},
		&models.Customer{},
		&models.CustomerPricing{},
		&models.SalesOrder{},
		&models.OrderLine{},
		&models.PurchaseRecord{},
	)
	if err != nil {
		log.Fatalf("Failed to migrate schema: %v", err)
	}
	seedDefaults(db)

	// External OCR provider and object store
	region := getEnv("AWS_REGION", "ap-northeast-1")
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), awsconfig.WithRegion(region))
	if err != nil {
		log.Fatalf("Failed to load AWS configuration: %v", err)
	}
	extractor := ocr.NewService(
		ocr.NewTextractProvider(awsCfg),
		ocr.NewS3Store(awsCfg),
		os.Getenv("TEXTRACT_S3_BUCKET"),
		os.Getenv("TEXTRACT_S3_PREFIX"),
	)

	matcher := matching.NewService(matching.NewGormCatalog(db))
	renderer := render.NewService(getEnv("RENDER_DIR", "rendered"), os.Getenv("RENDER_FONT"))
	sessions := api.NewSessionStore(12 * time.Hour)

	server := api.NewServer(
		db,
		extractor,
		matcher,
		renderer,
		sessions,
		getEnv("UPLOAD_DIR", "uploads"),
		os.Getenv("API_TOKEN"),
	)

	// Set up Gin router
	r := gin.Default()
	server.Register(r)

	// Start the server
	port := getEnv("PORT", "8080")
	if err := r.Run(":" + port); err != nil {
		log.Fatalf("Server stopped: %v", err)
	}
}

// seedDefaults populates sample products and customers when the masters
// are empty so a fresh install has something to match against.
func seedDefaults(db *gorm.DB) {
	var productCount int64
	db.Model(&models.Product{}).Count(&productCount)
	if productCount == 0 {
		db.Create(&[]models.Product{
			{InternalName: "M3x8 Screw", BasePrice: 16.5},
			{InternalName: "M5 Flange Bolt", BasePrice: 60.1},
			{InternalName: "Wing Nut", BasePrice: 31.0},
		})
	}

	var customerCount int64
	db.Model(&models.Customer{}).Count(&customerCount)
	if customerCount == 0 {
		db.Create(&[]models.Customer{
			{Name: "Osaka Trading", Language: "ja"},
			{Name: "Kyoto Fasteners", Language: "ja"},
			{Name: "Nagoya Assembly", Language: "ja"},
		})
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}
