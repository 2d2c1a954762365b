package sqlinline

const QInsertImage = `--sql 69781570-8ca2-4051-bc59-a227f9c38294
insert into uploaded_images (id, filename, filepath, is_hidden, upload_time)
values ($1::uuid, $2::text, $3::text, $4::bool, $5::timestamptz);
`

const QSelectImageByID = `--sql 13a039f6-a8dd-454c-9ad1-ceeab308f08b
select id::text, filename, filepath, is_hidden, upload_time
from uploaded_images
where id = $1::uuid;
`

const QSelectImagesByIDs = `--sql 344a3581-0933-4715-a18e-0b8665e36704
select id::text, filename, filepath, is_hidden, upload_time
from uploaded_images
where id = any($1::uuid[]);
`

const QListImages = `--sql 9da150f4-6c48-4825-9034-37dd700eac68
select id::text, filename, filepath, is_hidden, upload_time
from uploaded_images
where $3::bool or not is_hidden
order by upload_time desc, seq desc
limit $1::int offset $2::int;
`

const QSetImageHidden = `--sql e5a85c00-b127-49b8-960d-68aa59b24264
update uploaded_images
set is_hidden = $2::bool
where id = $1::uuid
returning id::text, filename, filepath, is_hidden, upload_time;
`

const QDeleteImage = `--sql 11d8090d-f6ac-4aec-b17a-6eeb702acb75
delete from uploaded_images
where id = $1::uuid
returning id::text, filename, filepath, is_hidden, upload_time;
`
