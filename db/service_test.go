//go:build unit
// +build unit

package db

import (
	"testing"

	"github.com/google/uuid"
	"github.com/qem-team/qem-engine/coreapp/core"
	"github.com/stretchr/testify/assert"
)

func newServiceDBForTest(t *testing.T) *ServiceDB {
	t.Helper()
	s := &ServiceDB{}
	// empty JobDBPath opens an in-memory store, empty API key disables
	// cloud sync
	assert.Nil(t, s.Setup(make(core.DBChan), &core.Conf{}))
	return s
}

func newStoredJob(t *testing.T, id string) core.Job {
	t.Helper()
	jm, err := core.NewJobManager(&core.NormalJob{})
	assert.Nil(t, err)
	jd := core.NewJobData()
	jd.ID = id
	jd.QASM = "OPENQASM 3;\nqubit[1] q;\nbit[1] c;\nrx(pi) q[0];\nc[0] = measure q[0];\n"
	jd.Shots = 1000
	jd.Status = core.READY
	jd.JobType = core.NORMAL_JOB
	jc, err := core.NewJobContext()
	assert.Nil(t, err)
	j, err := jm.NewJobFromJobData(jd, jc)
	assert.Nil(t, err)
	return j
}

func TestServiceDBInsertAndGet(t *testing.T) {
	sc := core.SCWithUnimplementedContainer()
	defer sc.TearDown()
	s := newServiceDBForTest(t)

	id := uuid.NewString()
	j := newStoredJob(t, id)
	assert.Nil(t, s.Insert(j))
	assert.Equal(t, core.ErrorJobIDConflict, s.Insert(j))

	got, err := s.Get(id)
	assert.Nil(t, err)
	assert.Equal(t, id, got.JobData().ID)
	assert.Equal(t, j.JobData().QASM, got.JobData().QASM)
	assert.Equal(t, j.JobData().Shots, got.JobData().Shots)
	assert.Equal(t, core.READY, got.JobData().Status)
	assert.Equal(t, core.NORMAL_JOB, got.JobType())

	_, err = s.Get("no_such_job")
	assert.ErrorContains(t, err, "not found no_such_job")
}

func TestServiceDBUpdate(t *testing.T) {
	sc := core.SCWithUnimplementedContainer()
	defer sc.TearDown()
	s := newServiceDBForTest(t)

	id := uuid.NewString()
	j := newStoredJob(t, id)
	assert.Nil(t, s.Insert(j))

	j.JobData().Status = core.SUCCEEDED
	j.JobData().Result.Counts = core.Counts{"0": 10, "1": 990}
	assert.Nil(t, s.Update(j))

	got, err := s.Get(id)
	assert.Nil(t, err)
	assert.Equal(t, core.SUCCEEDED, got.JobData().Status)
	assert.Equal(t, core.Counts{"0": 10, "1": 990}, got.JobData().Result.Counts)
}

func TestServiceDBUpdateWithoutInsert(t *testing.T) {
	sc := core.SCWithUnimplementedContainer()
	defer sc.TearDown()
	s := newServiceDBForTest(t)

	// scheduler clones reach the store before any explicit insert
	id := uuid.NewString()
	j := newStoredJob(t, id)
	assert.Nil(t, s.Update(j))

	got, err := s.Get(id)
	assert.Nil(t, err)
	assert.Equal(t, id, got.JobData().ID)
}

func TestServiceDBDelete(t *testing.T) {
	sc := core.SCWithUnimplementedContainer()
	defer sc.TearDown()
	s := newServiceDBForTest(t)

	id := uuid.NewString()
	assert.Nil(t, s.Insert(newStoredJob(t, id)))
	assert.Nil(t, s.Delete(id))

	_, err := s.Get(id)
	assert.ErrorContains(t, err, "not found")
	assert.ErrorContains(t, s.Delete(id), "not found")
}

func TestServiceDBInnerJobIDSet(t *testing.T) {
	sc := core.SCWithUnimplementedContainer()
	defer sc.TearDown()
	s := newServiceDBForTest(t)

	id := uuid.NewString()
	assert.False(t, s.ExistInInnerJobIDSet(id))
	s.AddToInnerJobIDSet(id)
	assert.True(t, s.ExistInInnerJobIDSet(id))
	s.RemoveFromInnerJobIDSet(id)
	assert.False(t, s.ExistInInnerJobIDSet(id))
}
