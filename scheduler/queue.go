package scheduler

import (
	"fmt"

	conq "github.com/enriquebris/goconcurrentqueue"
	"github.com/qem-team/qem-engine/coreapp/core"
	"go.uber.org/zap"
)

type queueChan chan *jobInScheduler

type fifo interface {
	Enqueue(*jobInScheduler) error
	Dequeue() (*jobInScheduler, error)
	DequeueOrWaitForNextElement() (*jobInScheduler, error)
	Get(index int) (*jobInScheduler, error)
	GetLen() int
	Remove(index int) error
}

// conqFIFO narrows goconcurrentqueue's interface{} elements to
// *jobInScheduler.
type conqFIFO struct {
	FIFO *conq.FIFO
}

func newConqFIFO() *conqFIFO {
	return &conqFIFO{FIFO: conq.NewFIFO()}
}

func (c *conqFIFO) Enqueue(js *jobInScheduler) error {
	return c.FIFO.Enqueue(js)
}

func (c *conqFIFO) Dequeue() (*jobInScheduler, error) {
	return narrow(c.FIFO.Dequeue())
}

func (c *conqFIFO) DequeueOrWaitForNextElement() (*jobInScheduler, error) {
	return narrow(c.FIFO.DequeueOrWaitForNextElement())
}

func (c *conqFIFO) Get(index int) (*jobInScheduler, error) {
	return narrow(c.FIFO.Get(index))
}

func (c *conqFIFO) GetLen() int {
	return c.FIFO.GetLen()
}

func (c *conqFIFO) Remove(index int) error {
	return c.FIFO.Remove(index)
}

func narrow(v interface{}, err error) (*jobInScheduler, error) {
	if err != nil {
		return nil, err
	}
	return v.(*jobInScheduler), nil
}

// NormalQueue buffers accepted jobs between the handler goroutines and the
// processing loop. Writes go through queueChan so only the accept loop
// touches the fifo tail.
type NormalQueue struct {
	fifo            fifo
	maxSize         int
	refillThreshold int
	queueChan       queueChan
	cancelChan      chan struct{}
}

func (n *NormalQueue) Setup(conf *core.Conf) error {
	n.refillThreshold = conf.QueueRefillThreshold
	n.maxSize = conf.QueueMaxSize
	n.fifo = newConqFIFO()
	n.queueChan = make(queueChan)
	n.cancelChan = make(chan struct{})
	go n.accept()
	return nil
}

func (n *NormalQueue) accept() {
	defer close(n.cancelChan)
	for {
		select {
		case <-n.cancelChan:
			return
		case jis := <-n.queueChan:
			n.put(jis)
		}
	}
}

func (n *NormalQueue) put(jis *jobInScheduler) {
	jd := jis.job.JobData()
	if n.fifo.GetLen() >= n.maxSize {
		zap.L().Info(fmt.Sprintf("Failed to put %s. Normal Queue is full.", jd.ID))
		return
	}
	zap.L().Debug(fmt.Sprintf("Putting %s to normalQueue", jd.ID))
	if err := n.fifo.Enqueue(jis); err != nil {
		zap.L().Error(fmt.Sprintf("Failed to put %s to normalQueue. Reason:%s", jd.ID, err))
	}
}

func (n *NormalQueue) TearDown() {
	n.cancelChan <- struct{}{}
}

// Dequeue pops the queue head. With wait set it blocks until an element
// gets enqueued.
func (n *NormalQueue) Dequeue(wait bool) (*jobInScheduler, error) {
	var (
		jis *jobInScheduler
		err error
	)
	if wait {
		jis, err = n.fifo.DequeueOrWaitForNextElement()
	} else {
		jis, err = n.fifo.Dequeue()
	}
	if err != nil {
		zap.L().Debug(fmt.Sprintf("no job in NormalQueue/reason:%s", err))
		return nil, err
	}
	zap.L().Debug(fmt.Sprintf("Dequeued job:%s", jis.job.JobData().ID))
	return jis, nil
}

func (n *NormalQueue) Delete(jobID string) error {
	idx, err := n.indexOf(jobID)
	if err != nil {
		zap.L().Info(fmt.Sprintf("Failed to delete %s. Reason:%s", jobID, err))
		return err
	}
	if err := n.fifo.Remove(idx); err != nil {
		zap.L().Error(fmt.Sprintf("Failed to remove idx:%d. Reason:%s", idx, err))
		return err
	}
	return nil
}

func (n *NormalQueue) IsOverRefillThreshold() bool {
	return n.fifo.GetLen() >= n.refillThreshold
}

func (n *NormalQueue) GetCurrentSize() int {
	return n.fifo.GetLen()
}

func (n *NormalQueue) indexOf(jobID string) (int, error) {
	for i := 0; i < n.fifo.GetLen(); i++ {
		js, err := n.fifo.Get(i)
		if err != nil {
			continue
		}
		if js.job.JobData().ID == jobID {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%s is not in the queue", jobID)
}
