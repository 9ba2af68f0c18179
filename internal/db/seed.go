package db

import (
	"fmt"
	"log"
	"math/rand"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var seedMajors = []string{"Computer Science", "Biology", "Economics", "Architecture", "Psychology", "Law"}
var seedCampuses = []string{"Central", "North", "Riverside"}

// SeedTestData resets the database and populates it with demo data.
//
// Behavior:
//  1. Clears messages, matches, interactions and users.
//  2. Creates 20 users with hashed passwords.
//  3. Generates swipes with ~70% likes; every 3rd like gets a reciprocal
//     like and a match, some matches get a short conversation.
func SeedTestData(db *gorm.DB) error {
	r := rand.New(rand.NewSource(time.Now().UnixNano()))

	// --- Fresh start ---
	for _, table := range []string{"messages", "matches", "interactions", "users"} {
		if err := db.Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	log.Println("Cleared existing data")

	// --- Seed Users ---
	var users []User
	for i := 1; i <= 20; i++ {
		hash, err := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("failed to hash password: %w", err)
		}

		user := User{
			Username:     fmt.Sprintf("student%d", i),
			Email:        fmt.Sprintf("student%d@campus.edu", i),
			PasswordHash: string(hash),
			FirstName:    fmt.Sprintf("Student%d", i),
			LastName:     "Demo",
			Bio:          "Here to meet people between lectures.",
			Major:        seedMajors[r.Intn(len(seedMajors))],
			Campus:       seedCampuses[r.Intn(len(seedCampuses))],
			Age:          18 + r.Intn(10),
			Active:       true,
		}
		if err := db.Create(&user).Error; err != nil {
			return fmt.Errorf("failed to seed user: %w", err)
		}
		users = append(users, user)
	}
	log.Println("Seeded 20 users.")

	// --- Seed Interactions and Matches ---
	counter := 0
	for ai := range users {
		for j := 0; j < 8; j++ {
			ti := r.Intn(len(users))
			if ti == ai {
				continue
			}
			actor, target := users[ai], users[ti]

			kind := InteractionDislike
			if r.Intn(100) < 70 {
				kind = InteractionLike
			}

			// guarantee a mutual like every 3rd swipe
			mutual := counter%3 == 0
			if mutual {
				kind = InteractionLike
			}

			interaction := Interaction{ActorID: actor.ID, TargetID: target.ID, Kind: kind}
			if err := db.Create(&interaction).Error; err != nil {
				// already swiped on this target in an earlier round
				continue
			}
			counter++

			if !mutual {
				continue
			}

			recip := Interaction{ActorID: target.ID, TargetID: actor.ID, Kind: InteractionLike}
			if err := db.Create(&recip).Error; err != nil {
				continue
			}

			a, b := NormalizePair(actor.ID, target.ID)
			match := Match{UserA: a, UserB: b, Status: MatchActive}
			if err := db.Create(&match).Error; err != nil {
				continue
			}

			// short conversation for some matches
			if r.Intn(2) == 0 {
				msgs := []Message{
					{SenderID: actor.ID, RecipientID: target.ID, MatchID: match.ID, Content: "Hey! We matched :)"},
					{SenderID: target.ID, RecipientID: actor.ID, MatchID: match.ID, Content: "Hey, nice! Which campus are you on?"},
				}
				for i := range msgs {
					if err := db.Create(&msgs[i]).Error; err != nil {
						return fmt.Errorf("failed to seed message: %w", err)
					}
				}
			}
		}
	}

	log.Printf("Seeded %d interactions.", counter)
	return nil
}
