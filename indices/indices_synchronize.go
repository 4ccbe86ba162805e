package indices

import (
	"context"
	"fmt"
	"sync"

	"hrx/authority"
	"hrx/bizerror"
	"hrx/client/es"
	"hrx/domain"
	"hrx/domain/professional"
	"hrx/event"
	"hrx/idgen"
	"hrx/indices/indexlog"
	"hrx/persistence"
	"hrx/session"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
	"github.com/sirupsen/logrus"
	"github.com/sony/sonyflake"
)

var (
	ProfessionalIndexEventHandlerName = "professionalIndexer"
	indexRobot                        = &session.Session{
		Identity: session.Identity{ID: 10, Name: "index-robot"},
		Perms:    authority.Permissions{authority.SystemAdminPermissionID},
		Context:  context.Background(),
	}

	indexLogIdWorker = sonyflake.NewSonyflake(sonyflake.Settings{})

	lock    sync.Mutex
	running bool

	IndicesFullSyncFunc    = IndicesFullSync
	ScheduleNewSyncRunFunc = ScheduleNewSyncRun
)

func ScheduleNewSyncRun(sec *session.Session) (bool, error) {
	if !sec.IsAdmin() {
		return false, bizerror.ErrForbidden
	}

	lock.Lock()
	if running {
		lock.Unlock()
		return false, nil
	}
	running = true
	lock.Unlock()

	waitRunning := sync.WaitGroup{}
	waitRunning.Add(1)
	go func() {
		waitRunning.Done()
		defer func() {
			lock.Lock()
			running = false
			lock.Unlock()
		}()
		IndicesFullSyncFunc()
	}()
	waitRunning.Wait()
	return true, nil
}

var (
	SyncBatchSize = 500
)

func IndicesFullSync() (err error) {
	defer func() {
		if ret := recover(); ret != nil {
			e, ok := ret.(error)
			if ok {
				err = e
			} else {
				err = fmt.Errorf("error on indices full sync: %v", ret)
			}
		}
	}()

	page := 1
	for {
		records, err := professional.LoadProfessionalsFunc(page, SyncBatchSize)
		if err != nil {
			logrus.Warnf("indices fully sync: error on retrive professionals(page = %d, pageSize = %d): %v", page, SyncBatchSize, err)
			page++
			continue
		}

		if len(records) == 0 {
			logrus.Infof("indices fully sync: there are no more professionals to index")
			return nil // loop exit
		}

		if err := IndexProfessionals(records, indexRobot); err != nil {
			logrus.Warnf("indices fully sync: error on index professionals(page = %d, pageSize = %d): %v", page, SyncBatchSize, err)
		}
		page++
	}
}

func IndexProfessionalEventHandle(e *event.EventRecord) *event.EventHandleResult {
	if e.SourceType != "professional" {
		return nil
	}

	deletion := e.EventCategory == event.EventCategoryDeleted
	logRecord, err := indexlog.CreateIndexLogFunc(idgen.NextID(indexLogIdWorker),
		e.SourceType, e.Event.SourceId, e.SourceDesc, deletion, e.Timestamp,
		persistence.ActiveDataSourceManager.GormDB(nil))
	if err != nil {
		return &event.EventHandleResult{
			Message:           fmt.Sprintf("create index log for professional %d, %v", e.Event.SourceId, err),
			HandlerIdentifier: ProfessionalIndexEventHandlerName,
		}
	}

	if err := applyIndexChange(e.Event.SourceId, deletion); err != nil {
		// log record stays pending, the retry cron will pick it up
		return &event.EventHandleResult{
			Message:           fmt.Sprintf("index professional %d, %v", e.Event.SourceId, err),
			HandlerIdentifier: ProfessionalIndexEventHandlerName,
		}
	}

	if err := indexlog.FinishIndexLogFunc(logRecord.ID); err != nil {
		logrus.Warnf("finish index log %d: %v", logRecord.ID, err)
	}
	return &event.EventHandleResult{Success: true, HandlerIdentifier: ProfessionalIndexEventHandlerName}
}

func applyIndexChange(sourceId types.ID, deletion bool) error {
	if deletion {
		return es.DeleteDocumentByIdFunc(ProfessionalIndexName, sourceId, indexRobot)
	}

	p, err := professional.DetailProfessionalFunc(sourceId, indexRobot)
	if err != nil {
		return err
	}
	return IndexProfessionals([]domain.Professional{*p}, indexRobot)
}

// RetryPendingIndexLogs replays index changes whose first attempt failed.
func RetryPendingIndexLogs() {
	page := 1
	for {
		logs, err := indexlog.LoadPendingIndexLogFunc(page, SyncBatchSize)
		if err != nil {
			logrus.Warnf("load pending index logs(page = %d): %v", page, err)
			return
		}
		if len(logs) == 0 {
			return
		}

		settled := 0
		for _, l := range logs {
			if err := applyIndexChange(l.SourceId, l.Deletion); err != nil {
				if gorm.IsRecordNotFoundError(err) {
					if err := indexlog.ObsoleteIndexLogFunc(l.ID); err != nil {
						logrus.Warnf("obsolete index log %d: %v", l.ID, err)
					} else {
						settled++
					}
					continue
				}
				logrus.Warnf("retry index log %d (professional %d): %v", l.ID, l.SourceId, err)
				continue
			}
			if err := indexlog.FinishIndexLogFunc(l.ID); err != nil {
				logrus.Warnf("finish index log %d: %v", l.ID, err)
			} else {
				settled++
			}
		}
		// settled rows leave the pending set and the remainder shifts down,
		// so the page only advances past rows that all stayed pending
		if settled == 0 {
			page++
		}
	}
}
