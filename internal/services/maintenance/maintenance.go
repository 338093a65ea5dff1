package maintenance

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Task is one periodic cleanup job. Run returns the number of rows touched.
type Task struct {
	Name string
	Run  func() (int64, error)
}

// Service runs housekeeping tasks on a fixed interval: expired refresh
// tokens, ended subscriptions, abandoned checkouts and old activity logs.
type Service struct {
	tasks    []Task
	interval time.Duration
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewService(interval time.Duration, tasks ...Task) *Service {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	return &Service{
		tasks:    tasks,
		interval: interval,
		stopChan: make(chan struct{}),
	}
}

// Start starts the maintenance loop
func (s *Service) Start() {
	s.wg.Add(1)
	go s.run()
	logrus.Infof("Maintenance service started (interval %s, %d tasks)", s.interval, len(s.tasks))
}

// Stop stops the loop and waits for a running pass to finish
func (s *Service) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
	})
	s.wg.Wait()
	logrus.Info("Maintenance service stopped")
}

func (s *Service) run() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.RunOnce()

	for {
		select {
		case <-ticker.C:
			s.RunOnce()
		case <-s.stopChan:
			return
		}
	}
}

// RunOnce runs every task once. A failing task does not stop the others.
func (s *Service) RunOnce() {
	for _, task := range s.tasks {
		n, err := task.Run()
		if err != nil {
			logrus.WithField("task", task.Name).Errorf("Maintenance task failed: %v", err)
			continue
		}
		if n > 0 {
			logrus.WithField("task", task.Name).Infof("Maintenance task affected %d rows", n)
		}
	}
}
