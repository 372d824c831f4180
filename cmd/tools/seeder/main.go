// Seeder loads the Glossy Design print-shop catalogue and the default
// counter accounts. Safe to rerun: every insert is an upsert.
package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/glossydesign/pos-api/internal/auth"
	"github.com/glossydesign/pos-api/internal/store"
)

type variantSeed struct {
	Name  string
	Price int64
	Note  string
}

type productSeed struct {
	Name     string
	Category string
	Cover    string
	Tint     string
	Badge    string
	Variants []variantSeed
}

// Prices are satang.
var products = []productSeed{
	{
		Name: "นามบัตร", Category: "print", Cover: "namecard.jpg", Tint: "#2563eb", Badge: "ขายดี",
		Variants: []variantSeed{
			{Name: "กระดาษอาร์ตการ์ด 250 แกรม (100 ใบ)", Price: 150_00, Note: "เคลือบด้าน"},
			{Name: "กระดาษอาร์ตการ์ด 300 แกรม (100 ใบ)", Price: 200_00, Note: "เคลือบเงา"},
			{Name: "กระดาษพิเศษ (100 ใบ)", Price: 350_00, Note: ""},
		},
	},
	{
		Name: "ตรายาง", Category: "stamp", Cover: "stamp.jpg", Tint: "#dc2626", Badge: "",
		Variants: []variantSeed{
			{Name: "ตรายางหมึกในตัว เล็ก", Price: 250_00, Note: "38x14 มม."},
			{Name: "ตรายางหมึกในตัว กลาง", Price: 350_00, Note: "47x18 มม."},
			{Name: "ตรายางด้ามไม้", Price: 150_00, Note: ""},
		},
	},
	{
		Name: "โปสการ์ด", Category: "print", Cover: "postcard.jpg", Tint: "#16a34a", Badge: "",
		Variants: []variantSeed{
			{Name: "A6 อาร์ตการ์ด 300 แกรม (50 ใบ)", Price: 300_00, Note: ""},
			{Name: "A6 อาร์ตการ์ด 300 แกรม (100 ใบ)", Price: 450_00, Note: ""},
		},
	},
	{
		Name: "ถ่ายเอกสาร", Category: "document", Cover: "copy.jpg", Tint: "#64748b", Badge: "",
		Variants: []variantSeed{
			{Name: "ขาวดำ A4", Price: 2_00, Note: "ต่อหน้า"},
			{Name: "สี A4", Price: 10_00, Note: "ต่อหน้า"},
			{Name: "ขาวดำ A3", Price: 4_00, Note: "ต่อหน้า"},
		},
	},
	{
		Name: "อิงค์เจ็ท", Category: "largeformat", Cover: "inkjet.jpg", Tint: "#9333ea", Badge: "ใหม่",
		Variants: []variantSeed{
			{Name: "ไวนิล (ตร.ม.)", Price: 250_00, Note: "รวมเจาะตาไก่"},
			{Name: "สติกเกอร์ PVC (ตร.ม.)", Price: 350_00, Note: ""},
			{Name: "แคนวาส (ตร.ม.)", Price: 550_00, Note: ""},
		},
	},
}

var staffAccounts = []struct {
	Username    string
	DisplayName string
	Password    string
	Role        string
}{
	{"owner", "เจ้าของร้าน", "changeme-owner", "admin"},
	{"counter1", "พนักงานหน้าร้าน 1", "changeme-counter", "cashier"},
	{"counter2", "พนักงานหน้าร้าน 2", "changeme-counter", "cashier"},
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, relying on environment variables")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		log.Fatalf("connect database: %v", err)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("ping database: %v", err)
	}

	db := store.New(pool)
	seedCatalog(ctx, db)
	seedStaff(ctx, db)
	log.Println("seeding completed")
}

func seedCatalog(ctx context.Context, db *store.Store) {
	for i, p := range products {
		row, err := db.InsertProduct(ctx, store.InsertProductParams{
			Name:     p.Name,
			Category: p.Category,
			Cover:    p.Cover,
			Tint:     p.Tint,
			Badge:    optionalText(p.Badge),
			Position: int32(i),
		})
		if err != nil {
			log.Fatalf("seed product %s: %v", p.Name, err)
		}
		for j, v := range p.Variants {
			_, err := db.InsertVariant(ctx, store.InsertVariantParams{
				ProductID: row.ID,
				Name:      v.Name,
				Price:     v.Price,
				Note:      optionalText(v.Note),
				Position:  int32(j),
			})
			if err != nil {
				log.Fatalf("seed variant %s / %s: %v", p.Name, v.Name, err)
			}
		}
		log.Printf("seeded %s (%d variants)", p.Name, len(p.Variants))
	}
}

func seedStaff(ctx context.Context, db *store.Store) {
	for _, s := range staffAccounts {
		hash, err := auth.HashPassword(s.Password)
		if err != nil {
			log.Fatalf("hash password for %s: %v", s.Username, err)
		}
		if _, err := db.InsertStaff(ctx, store.InsertStaffParams{
			Username:     s.Username,
			DisplayName:  s.DisplayName,
			PasswordHash: hash,
			Role:         s.Role,
		}); err != nil {
			log.Fatalf("seed staff %s: %v", s.Username, err)
		}
		log.Printf("seeded staff %s (%s)", s.Username, s.Role)
	}
}

func optionalText(value string) pgtype.Text {
	if value == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: value, Valid: true}
}
