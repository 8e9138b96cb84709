//go:build ignore

package main

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kamalsharma29/crm-dashboard/internal/auth"
	"github.com/kamalsharma29/crm-dashboard/internal/database"
	"github.com/kamalsharma29/crm-dashboard/internal/database/models"
	"github.com/kamalsharma29/crm-dashboard/pkg/config"
	"github.com/kamalsharma29/crm-dashboard/pkg/util"
	"gorm.io/gorm"
)

type demoUser struct {
	name     string
	email    string
	password string
	role     models.Role
}

var demoUsers = []demoUser{
	{"Admin User", "admin@crm.com", "admin123", models.RoleAdmin},
	{"Morgan Manager", "manager@crm.com", "manager123", models.RoleManager},
	{"Erin Employee", "employee@crm.com", "employee123", models.RoleEmployee},
}

type demoLead struct {
	name    string
	email   string
	company string
	status  models.LeadStatus
	source  models.LeadSource
	value   float64
	owner   string
}

var demoLeads = []demoLead{
	{"John Smith", "john.smith@techcorp.com", "TechCorp", models.LeadStatusNew, models.LeadSourceWebsite, 15000, "employee@crm.com"},
	{"Sarah Johnson", "sarah.j@innovate.io", "Innovate.io", models.LeadStatusContacted, models.LeadSourceReferral, 25000, "employee@crm.com"},
	{"Michael Brown", "m.brown@globalsoft.com", "GlobalSoft", models.LeadStatusQualified, models.LeadSourceSocialMedia, 40000, "employee@crm.com"},
	{"Emily Davis", "emily.davis@startup.co", "StartupCo", models.LeadStatusProposal, models.LeadSourceEmailCampaign, 18000, "employee@crm.com"},
	{"David Wilson", "d.wilson@enterprise.com", "Enterprise Inc", models.LeadStatusNegotiation, models.LeadSourceColdCall, 75000, "employee@crm.com"},
	{"Lisa Anderson", "lisa@retailplus.com", "RetailPlus", models.LeadStatusClosedWon, models.LeadSourceReferral, 32000, "admin@crm.com"},
	{"James Taylor", "j.taylor@finserv.com", "FinServ", models.LeadStatusClosedLost, models.LeadSourceWebsite, 12000, "admin@crm.com"},
	{"Jennifer Martinez", "jen.m@healthtech.org", "HealthTech", models.LeadStatusQualified, models.LeadSourceOther, 55000, "admin@crm.com"},
	{"Robert Garcia", "r.garcia@logistics.net", "Logistics Net", models.LeadStatusNew, models.LeadSourceColdCall, 8000, "manager@crm.com"},
	{"Amanda White", "amanda@edulearn.com", "EduLearn", models.LeadStatusContacted, models.LeadSourceSocialMedia, 22000, "manager@crm.com"},
}

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := util.NewLogger(cfg.Server.Env, cfg.Server.LogLevel)

	db, err := database.Connect(&cfg.Database, logger)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := database.AutoMigrate(db); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}

	ctx := context.Background()
	jwtService := auth.NewJWTService(cfg.Session.Secret, cfg.Session.MaxAge())
	authService := auth.NewService(db, jwtService, nil, auth.DefaultPasswordPolicy())

	owners := make(map[string]*models.User)
	for _, u := range demoUsers {
		user, err := authService.CreateAccount(ctx, auth.AccountInput{
			Name:     u.name,
			Email:    u.email,
			Password: u.password,
			Role:     u.role,
		})
		if errors.Is(err, auth.ErrUserExists) {
			user = &models.User{}
			if err := db.Where("email = ?", u.email).First(user).Error; err != nil {
				log.Fatalf("failed to load %s: %v", u.email, err)
			}
			log.Printf("user %s already exists, skipping", u.email)
		} else if err != nil {
			log.Fatalf("failed to create %s: %v", u.email, err)
		} else {
			log.Printf("created %s (%s)", u.email, u.role)
		}
		owners[u.email] = user
	}

	now := time.Now().UTC()
	created := 0
	for i, l := range demoLeads {
		var existing models.Lead
		err := db.Where("email = ?", l.email).First(&existing).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Fatalf("failed to check lead %s: %v", l.email, err)
		}

		value := l.value
		lead := models.Lead{
			Name:         l.name,
			Email:        l.email,
			Company:      l.company,
			Status:       l.status,
			Source:       l.source,
			Value:        &value,
			AssignedToID: owners[l.owner].ID,
		}
		// Spread creation dates over recent months so the trend chart has data.
		lead.CreatedAt = now.AddDate(0, -(i % 6), -i)
		if l.status != models.LeadStatusNew {
			contacted := lead.CreatedAt.Add(48 * time.Hour)
			lead.LastContactDate = &contacted
		}
		if !l.status.Closed() {
			next := now.Add(time.Duration(i+1) * 24 * time.Hour)
			lead.NextFollowUp = &next
		}
		if err := db.Create(&lead).Error; err != nil {
			log.Fatalf("failed to create lead %s: %v", l.email, err)
		}
		created++
	}

	log.Printf("seed complete: %d users, %d new leads", len(owners), created)
	log.Println("sign in with admin@crm.com / admin123 or employee@crm.com / employee123")
}
