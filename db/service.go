package db

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	jsoniter "github.com/json-iterator/go"
	"github.com/qem-team/qem-engine/coreapp/cloud"
	"github.com/qem-team/qem-engine/coreapp/core"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

var jsonIter = jsoniter.ConfigCompatibleWithStandardLibrary

const jobsSchema = `
CREATE TABLE IF NOT EXISTS jobs (
	id       TEXT PRIMARY KEY,
	job_type TEXT NOT NULL,
	status   TEXT NOT NULL,
	data     TEXT NOT NULL
);`

// ServiceDB persists jobs in a local sqlite store and mirrors their status
// and results to the cloud jobs API. Jobs on the inner set are runs the
// engine spawned itself; they stay local.
type ServiceDB struct {
	db       *sql.DB
	client   *cloud.Client
	dbc      core.DBChan
	mu       sync.RWMutex
	innerIDs map[string]struct{}
}

func (s *ServiceDB) Setup(dbc core.DBChan, c *core.Conf) error {
	zap.L().Debug("Setting up Service DB")
	s.innerIDs = make(map[string]struct{})

	dsn := c.JobDBPath
	if dsn == "" {
		dsn = ":memory:"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		zap.L().Error(fmt.Sprintf("failed to open the job store %s/reason:%s", dsn, err))
		return err
	}
	if _, err := db.Exec(jobsSchema); err != nil {
		zap.L().Error(fmt.Sprintf("failed to prepare the jobs table/reason:%s", err))
		return err
	}
	s.db = db

	if c.CloudAPIKey != "" {
		client, err := cloud.NewClient(c.CloudEndpoint, c.CloudAPIKey)
		if err != nil {
			zap.L().Error(fmt.Sprintf("failed to create the cloud API client/reason:%s", err))
			return err
		}
		s.client = client
	} else {
		zap.L().Info("no cloud API key, the job store works without cloud sync")
	}

	s.dbc = dbc
	go func() {
		for job := range s.dbc {
			zap.L().Debug(fmt.Sprintf("[ServiceDB] received %s", job.JobData().ID))
			if err := s.Update(job); err != nil {
				zap.L().Error(fmt.Sprintf("failed to update a job(%s). Reason:%s",
					job.JobData().ID, err.Error()))
			}
		}
	}()
	return nil
}

func (s *ServiceDB) Insert(j core.Job) error {
	jd := j.JobData()
	blob, err := jsonIter.Marshal(jd)
	if err != nil {
		zap.L().Error(fmt.Sprintf("failed to marshal a job(%s). Reason:%s", jd.ID, err))
		return err
	}
	res, err := s.db.Exec(
		`INSERT INTO jobs(id, job_type, status, data) VALUES(?, ?, ?, ?)
		 ON CONFLICT(id) DO NOTHING`,
		jd.ID, jd.JobType, jd.Status.String(), string(blob))
	if err != nil {
		zap.L().Error(fmt.Sprintf("failed to insert a job(%s). Reason:%s", jd.ID, err))
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return core.ErrorJobIDConflict
	}
	return nil
}

func (s *ServiceDB) Get(jobID string) (core.Job, error) {
	var data string
	err := s.db.QueryRow(`SELECT data FROM jobs WHERE id = ?`, jobID).Scan(&data)
	if err == sql.ErrNoRows {
		notFound := fmt.Errorf("not found %s", jobID)
		zap.L().Info(fmt.Sprintf("[ServiceDB] %s", notFound))
		return nil, notFound
	}
	if err != nil {
		zap.L().Error(fmt.Sprintf("failed to get a job(%s). Reason:%s", jobID, err))
		return nil, err
	}
	jd := core.NewJobData()
	if err := jsonIter.Unmarshal([]byte(data), jd); err != nil {
		zap.L().Error(fmt.Sprintf("failed to unmarshal a job(%s). Reason:%s", jobID, err))
		return nil, err
	}
	if ti := jd.Result.TranspilerInfo; ti != nil {
		// VirtualPhysicalMappingMap is not serialized; rebuild it from the raw blob
		if m, err := ti.VirtualPhysicalMappingRaw.ToMap(); err == nil {
			ti.VirtualPhysicalMappingMap = m
		}
	}
	jc, err := core.NewJobContext()
	if err != nil {
		return nil, err
	}
	return core.GetJobManager().NewJobFromJobData(jd, jc)
}

func (s *ServiceDB) Update(j core.Job) error {
	jd := j.JobData()
	blob, err := jsonIter.Marshal(jd)
	if err != nil {
		zap.L().Error(fmt.Sprintf("failed to marshal a job(%s). Reason:%s", jd.ID, err))
		return err
	}
	if _, err := s.db.Exec(
		`INSERT INTO jobs(id, job_type, status, data) VALUES(?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		 job_type = excluded.job_type, status = excluded.status, data = excluded.data`,
		jd.ID, jd.JobType, jd.Status.String(), string(blob)); err != nil {
		zap.L().Error(fmt.Sprintf("failed to update a job(%s). Reason:%s", jd.ID, err))
		return err
	}
	return s.syncToCloud(jd)
}

func (s *ServiceDB) Delete(jobID string) error {
	res, err := s.db.Exec(`DELETE FROM jobs WHERE id = ?`, jobID)
	if err != nil {
		zap.L().Error(fmt.Sprintf("failed to delete a job(%s). Reason:%s", jobID, err))
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		err := fmt.Errorf("not found %s", jobID)
		zap.L().Info(fmt.Sprintf("[ServiceDB] %s", err))
		return err
	}
	zap.L().Info(fmt.Sprintf("[ServiceDB] deleted %s", jobID))
	return nil
}

// syncToCloud pushes the state the cloud cares about: RUNNING as a status
// patch, terminal states with their full result. READY is edge-internal.
func (s *ServiceDB) syncToCloud(jd *core.JobData) error {
	if s.client == nil {
		return nil
	}
	if s.ExistInInnerJobIDSet(jd.ID) {
		zap.L().Debug(fmt.Sprintf("job(%s) is an inner job, skipping cloud sync", jd.ID))
		return nil
	}
	ctx := context.Background()
	switch jd.Status {
	case core.RUNNING:
		return s.client.PatchJobStatus(ctx, jd.ID, core.RUNNING)
	case core.SUCCEEDED, core.FAILED:
		if jd.TranspiledQASM != "" {
			if err := s.client.PatchJobTranspilerInfo(ctx, jd); err != nil {
				zap.L().Error(fmt.Sprintf("failed to update the transpiler info of %s/reason:%s",
					jd.ID, err))
				return err
			}
		}
		return s.client.PatchJobInfo(ctx, jd)
	case core.READY:
		zap.L().Debug(fmt.Sprintf("Job(%s) is ready. Not updating the cloud", jd.ID))
		return nil
	default:
		zap.L().Error(fmt.Sprintf("Unexpected status %s", jd.Status))
		return nil
	}
}

func (s *ServiceDB) AddToInnerJobIDSet(jobID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.innerIDs[jobID] = struct{}{}
}

func (s *ServiceDB) RemoveFromInnerJobIDSet(jobID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.innerIDs, jobID)
}

func (s *ServiceDB) ExistInInnerJobIDSet(jobID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.innerIDs[jobID]
	return ok
}
