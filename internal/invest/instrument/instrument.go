package instrument

import (
	"fmt"
	"sync"

	"github.com/STTM-NSU/invest-ledger/internal/logger"
	"github.com/STTM-NSU/invest-ledger/internal/model"
	"github.com/russianinvestments/invest-api-go-sdk/investgo"
	"go.uber.org/ratelimit"
)

type InstrumentsService struct {
	instrClient *investgo.InstrumentsServiceClient
	rateLimiter ratelimit.Limiter
	logger      logger.Logger

	mu         sync.Mutex
	figisCache map[string]model.Instrument
}

func NewInstrumentsService(client *investgo.Client, rateLimiter ratelimit.Limiter, logger logger.Logger) *InstrumentsService {
	return &InstrumentsService{
		instrClient: client.NewInstrumentsServiceClient(),
		rateLimiter: rateLimiter,
		logger:      logger,
		figisCache:  make(map[string]model.Instrument),
	}
}

func (s *InstrumentsService) GetInstrument(figi string) (model.Instrument, error) {
	s.mu.Lock()
	v, ok := s.figisCache[figi]
	s.mu.Unlock()
	if ok {
		return v, nil
	}

	s.rateLimiter.Take()
	resp, err := s.instrClient.InstrumentByFigi(figi)
	if err != nil {
		return model.Instrument{}, fmt.Errorf("%w: can't get instrument by figi %s", err, figi)
	}

	info := resp.GetInstrument()
	instr := toInstrument(info, model.FromBrokerTypeName(info.GetInstrumentType()))

	s.mu.Lock()
	s.figisCache[figi] = instr
	s.mu.Unlock()

	return instr, nil
}
