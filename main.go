package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hrx/account"
	"hrx/bizerror"
	"hrx/client/es"
	"hrx/client/mapbox"
	"hrx/client/resend"
	"hrx/client/s3"
	"hrx/common"
	"hrx/domain"
	"hrx/domain/contract"
	"hrx/domain/professional"
	"hrx/domain/project"
	"hrx/domain/project/team"
	"hrx/domain/quotation"
	"hrx/domain/supplier"
	"hrx/event"
	"hrx/indices"
	"hrx/indices/indexlog"
	"hrx/indices/search"
	"hrx/infra/tracing"
	"hrx/notification"
	"hrx/persistence"
	"hrx/ratelimit"
	"hrx/session"
	"hrx/sessions"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func main() {
	log.Println("service start")

	if err := contract.Bootstrap(); err != nil {
		log.Fatalf("contract signing config failed %v\n", err)
	}
	if err := resend.Bootstrap(); err != nil {
		log.Fatalf("mail provider config failed %v\n", err)
	}
	if err := mapbox.Bootstrap(); err != nil {
		log.Fatalf("mapping provider config failed %v\n", err)
	}
	s3.Bootstrap()
	es.CreateClientFromEnv()
	ratelimit.Bootstrap()

	closer, err := tracing.Bootstrap(common.GetServiceName())
	if err != nil {
		logrus.Warnf("tracing disabled: %v", err)
	} else {
		defer closer.Close()
	}

	dbConfig, err := persistence.ParseDatabaseConfigFromEnv()
	if err != nil {
		log.Fatalf("parse database config failed %v\n", err)
	}

	// create database (no conflict)
	if dbConfig.DriverType == "mysql" {
		if err := persistence.PrepareMysqlDatabase(dbConfig.DriverArgs); err != nil {
			log.Fatalf("failed to prepare database %v\n", err)
		}
	}

	// connect database
	ds := &persistence.DataSourceManager{DatabaseConfig: dbConfig}
	if err := ds.Start(); err != nil {
		log.Fatalf("database conneciton failed %v\n", err)
	}
	defer ds.Stop()
	persistence.ActiveDataSourceManager = ds

	// database migration (race condition)
	err = ds.GormDB(nil).AutoMigrate(
		&account.User{}, &account.Role{}, &account.Permission{},
		&account.RolePermissionBinding{}, &account.UserRoleBinding{},
		&domain.EventProject{}, &domain.ProjectNumberSequence{}, &domain.TeamMember{},
		&domain.SupplierQuotation{}, &domain.Contract{},
		&domain.Professional{}, &domain.ProfessionalHistory{}, &domain.EquipmentSupplier{},
		&event.EventRecord{}, &notification.EmailRecord{}, &indexlog.IndexLogRecord{},
	).Error
	if err != nil {
		log.Fatalf("database migration failed %v\n", err)
	}

	if err := account.DefaultSecurityConfiguration(); err != nil {
		log.Fatalf("security configuration failed %v\n", err)
	}

	event.EventHandlers = append(event.EventHandlers, indices.IndexProfessionalEventHandle)

	engine := gin.Default()
	engine.Use(bizerror.ErrorHandling(), tracing.TracingIngress())
	engine.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, common.GetServiceName())
	})

	sessions.RegisterSessionsRestAPI(engine)

	adminFilters := []gin.HandlerFunc{session.SimpleAuthFilter(), session.AdminOnlyFilter()}
	project.RegisterProjectsRestAPI(engine, adminFilters...)
	team.RegisterTeamRestAPI(engine, adminFilters...)
	quotation.RegisterQuotationsRestAPI(engine, adminFilters...)
	contract.RegisterContractsRestAPI(engine, adminFilters...)
	professional.RegisterProfessionalsRestAPI(engine, adminFilters...)
	supplier.RegisterSuppliersRestAPI(engine, adminFilters...)
	indices.RegisterIndicesRestAPI(engine, adminFilters...)
	search.RegisterProfessionalSearchRestAPI(engine, adminFilters...)

	indices.StartCron()

	serveHTTP(engine)
}

func serveHTTP(engine *gin.Engine) {
	addr := os.Getenv("SERVICE_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{Addr: addr, Handler: engine}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("[QUIT] shutdown signal has been received, the service will exit in 3 seconds.")

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("[QUIT] http server shutdown failed: %v\n", err)
	}
	log.Println("[QUIT] http server is shutdown gracefully, new request will be rejected.")

	<-ctx.Done()
	log.Println("[QUIT] service exiting")
}
