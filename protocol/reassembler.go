package protocol

// Reassembler накапливает байты одного соединения и восстанавливает из них
// целые кадры. Поток TCP приходит произвольными кусками: кусок может
// содержать пол-кадра, несколько кадров подряд или хвост предыдущего.
type Reassembler struct {
	buf []byte
}

// Feed добавляет очередную порцию байтов и возвращает все полностью
// собранные кадры в порядке прихода. Остаток (начало следующего, еще
// неполного кадра) сохраняется до следующего вызова.
//
// Ошибка декодирования означает, что поток рассинхронизирован и
// соединение должно быть закрыто; уже собранные кадры возвращаются.
func (r *Reassembler) Feed(p []byte) ([]*Frame, error) {
	r.buf = append(r.buf, p...)

	var frames []*Frame
	for len(r.buf) >= FrameSize {
		f, err := Decode(r.buf[:FrameSize])
		if err != nil {
			return frames, err
		}
		frames = append(frames, f)
		// Сдвигаем хвост в начало буфера
		r.buf = r.buf[:copy(r.buf, r.buf[FrameSize:])]
	}
	return frames, nil
}

// Pending возвращает число байтов, ожидающих продолжения кадра
func (r *Reassembler) Pending() int {
	return len(r.buf)
}
