package core

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// MemoryDB keeps jobs in a process-local map. It is the store for dev mode
// and tests; the sqlite store in the db package is the durable one.
type MemoryDB struct {
	dbMap    map[string]Job
	innerIDs map[string]struct{}
	dbChan   <-chan Job
	mu       sync.RWMutex
}

func (d *MemoryDB) Setup(dbc DBChan, c *Conf) error {
	d.dbMap = make(map[string]Job)
	d.innerIDs = make(map[string]struct{})
	d.dbChan = dbc
	go d.serve()
	return nil
}

// serve applies job snapshots arriving on the channel until it is closed.
func (d *MemoryDB) serve() {
	for job := range d.dbChan {
		zap.L().Debug(fmt.Sprintf("[MemoryDB] received %s", job.JobData().ID))
		if err := d.Update(job); err != nil {
			zap.L().Error(fmt.Sprintf("failed to update a job(%s). Reason:%s",
				job.JobData().ID, err.Error()))
		}
	}
}

func (d *MemoryDB) Insert(j Job) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.dbMap[j.JobData().ID]; ok {
		return ErrorJobIDConflict
	}
	d.dbMap[j.JobData().ID] = j
	return nil
}

func (d *MemoryDB) Get(jobID string) (Job, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	job, ok := d.dbMap[jobID]
	if !ok {
		err := fmt.Errorf("not found %s", jobID)
		zap.L().Info(fmt.Sprintf("[MemoryDB] %s", err))
		return nil, err
	}
	return job, nil
}

func (d *MemoryDB) Update(j Job) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dbMap[j.JobData().ID] = j
	return nil
}

func (d *MemoryDB) Delete(jobID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.dbMap[jobID]; !ok {
		err := fmt.Errorf("failed to find %s", jobID)
		zap.L().Info(fmt.Sprintf("[MemoryDB] %s", err))
		return err
	}
	delete(d.dbMap, jobID)
	zap.L().Info(fmt.Sprintf("[MemoryDB] deleted %s from DB", jobID))
	return nil
}

// Inner jobs are runs the engine spawned itself (training circuits of a
// mitigation job); they never leave the edge and are skipped by cloud sync.
func (d *MemoryDB) AddToInnerJobIDSet(jobID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.innerIDs[jobID] = struct{}{}
}

func (d *MemoryDB) RemoveFromInnerJobIDSet(jobID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.innerIDs, jobID)
}

func (d *MemoryDB) ExistInInnerJobIDSet(jobID string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.innerIDs[jobID]
	return ok
}
